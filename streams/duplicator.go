package streams

import (
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/spirv"
)

// Duplicator gives every stage its own copy of the functions whose body
// depends on the stage stream layout. The first stage to visit a function
// keeps the original; later stages get fresh copies instantiated from a
// snapshot taken before any patching.
type Duplicator struct {
	ctx *spirv.Context
	// specs maps, per stage, original function ids to the function that
	// serves the stage.
	specs map[Stage]map[uint32]uint32
	owner map[uint32]Stage
}

// NewDuplicator returns a duplicator that allocates ids from ctx and keeps
// its snapshots in ctx.Snapshots.
func NewDuplicator(ctx *spirv.Context) *Duplicator {
	return &Duplicator{
		ctx:   ctx,
		specs: make(map[Stage]map[uint32]uint32),
		owner: make(map[uint32]Stage),
	}
}

// Specializations returns the original-to-specialized function map of a
// stage.
func (d *Duplicator) Specializations(stage Stage) map[uint32]uint32 {
	m, ok := d.specs[stage]
	if !ok {
		m = make(map[uint32]uint32)
		d.specs[stage] = m
	}
	return m
}

// Visit returns the function that serves stage for the original function
// fn, duplicating it when another stage already owns the original.
func (d *Duplicator) Visit(buf *spirv.Buffer, fn uint32, stage Stage) (uint32, error) {
	specs := d.Specializations(stage)
	if id, ok := specs[fn]; ok {
		return id, nil
	}
	r, ok := buf.Function(fn)
	if !ok {
		return 0, diag.Internalf("duplicate: function %%%d not found", fn)
	}
	snapshot, ok := d.ctx.Snapshots[fn]
	if !ok {
		snapshot = make([]spirv.Instruction, 0, r.End-r.Start)
		for _, inst := range buf.Functions()[r.Start:r.End] {
			snapshot = append(snapshot, inst.Clone())
		}
		d.ctx.Snapshots[fn] = snapshot
	}
	if _, owned := d.owner[fn]; !owned {
		d.owner[fn] = stage
		specs[fn] = fn
		return fn, nil
	}

	copied, remap := d.instantiate(snapshot)
	buf.Insert(r.End, copied)
	for _, inst := range snapshot {
		old := inst.Result()
		if name := buf.Name(old); old != 0 && name != "" {
			buf.AddName(remap[old], name)
		}
	}
	id := remap[fn]
	specs[fn] = id
	d.ctx.ExtraRoots = append(d.ctx.ExtraRoots, id)
	return id, nil
}

// instantiate copies a snapshot, giving every result a fresh id and
// rewriting the references inside the copy.
func (d *Duplicator) instantiate(snapshot []spirv.Instruction) ([]spirv.Instruction, map[uint32]uint32) {
	remap := make(map[uint32]uint32)
	for _, inst := range snapshot {
		if id := inst.Result(); id != 0 {
			remap[id] = d.ctx.NextID()
		}
	}
	out := make([]spirv.Instruction, len(snapshot))
	for i, inst := range snapshot {
		c := inst.Clone()
		if id := c.Result(); id != 0 {
			c.SetResult(remap[id])
		}
		c.IDs(func(p *uint32) {
			if n, ok := remap[*p]; ok {
				*p = n
			}
		})
		out[i] = c
	}
	return out, remap
}
