package streams

import (
	"go.uber.org/zap"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/spirv"
)

// Layout is the concrete stream interface of one stage.
type Layout struct {
	Binding *Binding
	// Streams, Input and Output are the ids of the stage struct types.
	// Input and Output are 0 when the stage has no such fields.
	Streams, Input, Output uint32
	// Variable is the Private variable holding the stage streams.
	Variable uint32
	// Inputs and Outputs are the interface variables of the input-bound
	// and output-bound fields, in Binding order.
	Inputs, Outputs []uint32
}

// Patcher rewrites the stream pseudo-instructions of functions for a
// stage.
type Patcher struct {
	ctx     *spirv.Context
	log     *zap.Logger
	layouts map[Stage]*Layout
	dup     *Duplicator
	types   map[Stage]*typeMap
	// funcTypes holds the operands of function types, by id.
	funcTypes map[uint32][]uint32
}

// typeMap memoizes placeholder replacements. Ids in processed need none.
type typeMap struct {
	replaced  map[uint32]uint32
	processed map[uint32]bool
}

// NewPatcher returns a patcher for the given stage layouts. Calls are
// retargeted to the specializations recorded by dup.
func NewPatcher(ctx *spirv.Context, layouts map[Stage]*Layout, dup *Duplicator, log *zap.Logger) *Patcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Patcher{
		ctx:     ctx,
		log:     log,
		layouts: layouts,
		dup:     dup,
		types:   make(map[Stage]*typeMap),
	}
}

// PatchFunction rewrites the function in range r for stage and returns
// its new range:
//
//   - placeholder types in operands become the stage struct types;
//   - streams markers become the stage streams variable, and member
//     accesses become access chains by stream index;
//   - expansions build the stage Streams struct from Input fields and
//     default values, contractions build the Output struct;
//   - vertex emission stores every output field and emits the vertex;
//   - calls go to the stage's specialization of the callee.
func (p *Patcher) PatchFunction(buf *spirv.Buffer, r spirv.FunctionRange, stage Stage) (spirv.FunctionRange, error) {
	l, ok := p.layouts[stage]
	if !ok {
		return r, diag.Internalf("patch: no layout for %s", stage)
	}
	if p.funcTypes == nil {
		p.funcTypes = make(map[uint32][]uint32)
		for _, inst := range buf.Sections[spirv.SectionGlobal] {
			if inst.Op == spirv.OpTypeFunction {
				p.funcTypes[inst.Words[0]] = inst.Words[1:]
			}
		}
	}
	specs := p.dup.Specializations(stage)
	alias := make(map[uint32]uint32)
	var out []spirv.Instruction
	emit := func(op spirv.OpCode, words ...uint32) {
		out = append(out, spirv.NewInstruction(op, words...))
	}

	for _, orig := range buf.Functions()[r.Start:r.End] {
		inst := orig.Clone()
		inst.IDs(func(id *uint32) {
			if a, ok := alias[*id]; ok {
				*id = a
			}
			*id = p.remap(*id, stage)
		})

		switch inst.Op {
		case spirv.OpSDSLStreams:
			alias[inst.Result()] = l.Variable
			continue

		case spirv.OpSDSLMemberAccess:
			name, _ := spirv.DecodeString(inst.Words[3:])
			f := l.Binding.Field(name)
			if f == nil || f.StreamIndex < 0 {
				return r, diag.Internalf("patch: stream %s is not part of %s streams", name, stage)
			}
			emit(spirv.OpAccessChain, inst.Words[0], inst.Words[1], inst.Words[2], p.ctx.Int(f.StreamIndex))
			continue

		case spirv.OpSDSLExpand:
			var values []uint32
			for _, f := range l.Binding.Streams() {
				typ, err := p.ctx.Type(f.Type)
				if err != nil {
					return r, err
				}
				if f.InputBound && len(inst.Words) > 2 {
					id := p.ctx.NextID()
					emit(spirv.OpCompositeExtract, typ, id, inst.Words[2], uint32(f.InputIndex))
					values = append(values, id)
					continue
				}
				null, err := p.ctx.Null(f.Type)
				if err != nil {
					return r, err
				}
				values = append(values, null)
			}
			emit(spirv.OpCompositeConstruct, append([]uint32{l.Streams, inst.Result()}, values...)...)
			continue

		case spirv.OpSDSLContract:
			var values []uint32
			for _, f := range l.Binding.Outputs() {
				typ, err := p.ctx.Type(f.Type)
				if err != nil {
					return r, err
				}
				id := p.ctx.NextID()
				emit(spirv.OpCompositeExtract, typ, id, inst.Words[2], uint32(f.StreamIndex))
				values = append(values, id)
			}
			emit(spirv.OpCompositeConstruct, append([]uint32{l.Output, inst.Result()}, values...)...)
			continue

		case spirv.OpSDSLEmitVertex:
			if stage != Geometry {
				return r, diag.Internalf("patch: vertex emission in %s stage", stage)
			}
			value := p.ctx.NextID()
			emit(spirv.OpLoad, l.Streams, value, l.Variable)
			for k, f := range l.Binding.Outputs() {
				typ, err := p.ctx.Type(f.Type)
				if err != nil {
					return r, err
				}
				id := p.ctx.NextID()
				emit(spirv.OpCompositeExtract, typ, id, value, uint32(f.StreamIndex))
				emit(spirv.OpStore, l.Outputs[k], id)
			}
			emit(spirv.OpEmitVertex)
			continue

		case spirv.OpFunctionCall:
			if id, ok := specs[inst.Words[2]]; ok {
				inst.Words[2] = id
			}
		}
		out = append(out, inst)
	}

	p.log.Debug("patched function",
		zap.String("function", buf.Name(r.ID)),
		zap.Stringer("stage", stage),
		zap.Int("instructions", len(out)))
	return buf.Replace(r, out), nil
}

// remap returns the stage replacement of a placeholder type, a pointer to
// one or a function type using one. Other ids come back unchanged.
func (p *Patcher) remap(id uint32, stage Stage) uint32 {
	m, ok := p.types[stage]
	if !ok {
		m = &typeMap{replaced: make(map[uint32]uint32), processed: make(map[uint32]bool)}
		p.types[stage] = m
	}
	if n, ok := m.replaced[id]; ok {
		return n
	}
	if m.processed[id] {
		return id
	}
	n := p.resolve(id, stage)
	if n != id {
		m.replaced[id] = n
	} else {
		m.processed[id] = true
	}
	return n
}

func (p *Patcher) resolve(id uint32, stage Stage) uint32 {
	l := p.layouts[stage]
	if t, ok := p.ctx.TypeOf[id]; ok {
		var n uint32
		switch t.Placeholder {
		case sema.PlaceholderStreams:
			n = l.Streams
		case sema.PlaceholderInput:
			n = l.Input
		case sema.PlaceholderOutput:
			n = l.Output
		}
		if n != 0 {
			return n
		}
		return id
	}
	if ptr, ok := p.ctx.Pointers[id]; ok {
		if elem := p.remap(ptr.Elem, stage); elem != ptr.Elem {
			return p.ctx.PointerTo(ptr.Class, elem)
		}
		return id
	}
	if words, ok := p.funcTypes[id]; ok && len(words) > 0 {
		changed := false
		result := p.remap(words[0], stage)
		changed = result != words[0]
		params := make([]uint32, len(words)-1)
		for i, w := range words[1:] {
			params[i] = p.remap(w, stage)
			changed = changed || params[i] != w
		}
		if changed {
			return p.ctx.FunctionType(result, params)
		}
	}
	return id
}
