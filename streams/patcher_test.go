package streams

import (
	"testing"

	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/spirv"
)

func TestPatcherRewritesPseudoInstructions(t *testing.T) {
	buf, ctx, info := emit(t, shaded)
	bindings, err := Analyze(info, []Stage{Vertex})
	if err != nil {
		t.Fatal(err)
	}
	s := &specializer{buf: buf, ctx: ctx, info: info, layouts: map[Stage]*Layout{}, dup: NewDuplicator(ctx)}
	l, err := s.layout(bindings[Vertex])
	if err != nil {
		t.Fatal(err)
	}
	p := NewPatcher(ctx, s.layouts, s.dup, nil)

	shade := named(buf, "Shade")[0]
	r, _ := buf.Function(shade)
	r, err = p.PatchFunction(buf, r, Vertex)
	if err != nil {
		t.Fatal(err)
	}
	indices := make(map[uint32]bool)
	for _, inst := range buf.Functions()[r.Start:r.End] {
		if inst.Op.IsPseudo() {
			t.Errorf("%s left in Shade", inst.Op)
		}
		if inst.Op == spirv.OpAccessChain {
			if inst.Words[2] != l.Variable {
				t.Errorf("access chain on %%%d, want the streams variable %%%d", inst.Words[2], l.Variable)
			}
			indices[inst.Words[3]] = true
		}
	}
	// Shade reads Normal (stream index 1) and writes Color (index 2).
	if len(indices) != 2 || !indices[ctx.Int(1)] || !indices[ctx.Int(2)] {
		t.Errorf("access chain indices %v, want %%%d and %%%d", indices, ctx.Int(1), ctx.Int(2))
	}

	// Placeholder pointers resolve to the stage struct through the memo.
	ph := ctx.MustType(info.Streams)
	ptr := ctx.PointerTo(spirv.StorageClassPrivate, ph)
	got := p.remap(ptr, Vertex)
	if want := ctx.PointerTo(spirv.StorageClassPrivate, l.Streams); got != want {
		t.Errorf("remap(pointer) = %d, want %d", got, want)
	}
	if again := p.remap(ptr, Vertex); again != got {
		t.Error("remap is not stable")
	}
	float := ctx.MustType(sema.Float)
	if p.remap(float, Vertex) != float || !p.types[Vertex].processed[float] {
		t.Error("non-placeholder type was rewritten or not recorded")
	}
}

func TestPatcherResolvesEveryPlaceholder(t *testing.T) {
	ctx := spirv.NewContext(spirv.NewBuffer(spirv.Version1_3))
	l := &Layout{Streams: 100, Input: 101, Output: 102}
	want := map[sema.Placeholder]uint32{
		sema.PlaceholderStreams: l.Streams,
		sema.PlaceholderInput:   l.Input,
		sema.PlaceholderOutput:  l.Output,
	}
	p := NewPatcher(ctx, map[Stage]*Layout{Pixel: l}, nil, nil)
	seen := 0
	for ph := sema.PlaceholderStreams; ph.String() != ""; ph++ {
		seen++
		id := ctx.MustType(sema.PlaceholderOf(ph, nil))
		if got := p.resolve(id, Pixel); got != want[ph] {
			t.Errorf("resolve(%s) = %d, want %d", ph, got, want[ph])
		}
	}
	if seen != len(want) {
		t.Errorf("%d named placeholders, want %d", seen, len(want))
	}
}
