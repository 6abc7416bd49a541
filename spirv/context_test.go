package spirv

import (
	"testing"

	"github.com/gogpu/sdsl/sema"
)

func TestContextTypeDeduplication(t *testing.T) {
	buf := NewBuffer(Version1_3)
	ctx := NewContext(buf)
	first := ctx.MustType(sema.Float3)
	second := ctx.MustType(sema.VectorOf(sema.Float, 3))
	if first != second {
		t.Errorf("float3 emitted twice: %d, %d", first, second)
	}
	if got := ctx.TypeOf[first]; !got.Equal(sema.Float3) {
		t.Errorf("TypeOf[%d] = %s", first, got)
	}
	if n := len(buf.Sections[SectionGlobal]); n != 2 {
		t.Errorf("got %d global instructions, want float and float3", n)
	}
	p1 := ctx.PointerTo(StorageClassPrivate, first)
	p2, err := ctx.Pointer(StorageClassPrivate, sema.Float3)
	if err != nil || p1 != p2 {
		t.Errorf("pointer types differ: %d, %d (%v)", p1, p2, err)
	}
	if p := ctx.PointerTo(StorageClassFunction, first); p == p1 {
		t.Error("storage classes share a pointer type")
	}
	if ctx.Pointers[p1] != (Pointer{Class: StorageClassPrivate, Elem: first}) {
		t.Errorf("Pointers[%d] = %+v", p1, ctx.Pointers[p1])
	}
}

func TestContextCapabilities(t *testing.T) {
	buf := NewBuffer(Version1_3)
	ctx := NewContext(buf)
	ctx.MustType(sema.Half)
	ctx.MustType(sema.Double)
	ctx.MustType(sema.Short)
	ctx.MustType(sema.Long)
	want := map[Capability]bool{CapabilityFloat16: true, CapabilityFloat64: true, CapabilityInt16: true, CapabilityInt64: true}
	for _, inst := range buf.Sections[SectionCapability] {
		delete(want, Capability(inst.Words[0]))
	}
	if len(want) != 0 {
		t.Errorf("missing capabilities %v", want)
	}
}

func TestContextConstants(t *testing.T) {
	buf := NewBuffer(Version1_3)
	ctx := NewContext(buf)

	if ctx.Int(-1) != ctx.Constant(sema.Int, 0xffffffff) {
		t.Error("Int(-1) not shared with its bit pattern")
	}
	tests := []struct {
		name  string
		typ   *sema.SymbolType
		bits  uint64
		words []uint32
	}{
		{"int", sema.Int, 0xfffffffe, []uint32{0xfffffffe}},
		{"short", sema.Short, 0xffff, []uint32{0xffffffff}},
		{"ushort", sema.UShort, 0xffff, []uint32{0xffff}},
		{"double", sema.Double, 0x3ff0000000000001, []uint32{1, 0x3ff00000}},
		{"half", sema.Half, 0x3c00, []uint32{0x3c00}},
	}
	for _, tt := range tests {
		id := ctx.Constant(tt.typ, tt.bits)
		var inst Instruction
		for _, in := range buf.Sections[SectionGlobal] {
			if in.Result() == id {
				inst = in
			}
		}
		if inst.Op != OpConstant {
			t.Errorf("%s: constant %d not found", tt.name, id)
			continue
		}
		if got := inst.Words[2:]; len(got) != len(tt.words) || got[0] != tt.words[0] {
			t.Errorf("%s: words = %#x, want %#x", tt.name, got, tt.words)
		}
		if !ctx.IsConstant(id) {
			t.Errorf("%s: IsConstant(%d) = false", tt.name, id)
		}
	}

	tru, fls := ctx.Constant(sema.Bool, 1), ctx.Constant(sema.Bool, 0)
	if tru == fls {
		t.Error("true and false share an id")
	}

	one := ctx.Constant(sema.Float, 0x3f800000)
	v1, err := ctx.Composite(sema.Float2, []uint32{one, one})
	if err != nil {
		t.Fatal(err)
	}
	v2, _ := ctx.Composite(sema.Float2, []uint32{one, one})
	if v1 != v2 {
		t.Errorf("equal composites got ids %d and %d", v1, v2)
	}
	if got := ctx.Constituents(v1); len(got) != 2 || got[0] != one {
		t.Errorf("Constituents = %v", got)
	}
	null, _ := ctx.Null(sema.Float4x4)
	if again, _ := ctx.Null(sema.Float4x4); again != null {
		t.Error("OpConstantNull not shared")
	}
	if err := Validate(buf); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStd140(t *testing.T) {
	inner := sema.StructOf("Light", []sema.Field{{Name: "Dir", Type: sema.Float3}, {Name: "Power", Type: sema.Float}})
	tests := []struct {
		typ                 *sema.SymbolType
		align, size, stride int
	}{
		{sema.Float, 4, 4, 0},
		{sema.Float2, 8, 8, 0},
		{sema.Float3, 16, 12, 0},
		{sema.Float4x4, 16, 64, 0},
		{sema.MatrixOf(sema.Float, 2, 3), 16, 48, 0},
		{sema.ArrayOf(sema.Float, 4), 16, 64, 16},
		{sema.ArrayOf(sema.Float4x4, 2), 16, 128, 64},
		{inner, 16, 16, 0},
	}
	for _, tt := range tests {
		align, size, stride := std140(tt.typ)
		if align != tt.align || size != tt.size || stride != tt.stride {
			t.Errorf("std140(%s) = %d, %d, %d; want %d, %d, %d", tt.typ, align, size, stride, tt.align, tt.size, tt.stride)
		}
	}
}

func TestContextBlockArrays(t *testing.T) {
	buf := NewBuffer(Version1_3)
	ctx := NewContext(buf)
	arr := sema.ArrayOf(sema.Float, 4)
	private := ctx.MustType(arr)
	block := sema.StructOf("B", []sema.Field{{Name: "A", Type: arr}})
	if _, err := ctx.Block("B", block, 2); err != nil {
		t.Fatal(err)
	}
	laid, err := ctx.BlockType(arr)
	if err != nil {
		t.Fatal(err)
	}
	if laid == private {
		t.Error("uniform array shares the private array type")
	}
	var stride bool
	for _, inst := range buf.Sections[SectionAnnotation] {
		if inst.Op == OpDecorate && inst.Words[0] == laid && Decoration(inst.Words[1]) == DecorationArrayStride {
			stride = inst.Words[2] == 16
		}
		if inst.Op == OpDecorate && inst.Words[0] == private {
			t.Errorf("private array decorated with %s", decorationNames[inst.Words[1]])
		}
	}
	if !stride {
		t.Error("uniform array has no ArrayStride 16")
	}
	if err := Validate(buf); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
