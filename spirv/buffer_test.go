package spirv

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/gogpu/sdsl/sema"
)

func TestBufferMinimalModule(t *testing.T) {
	buf := NewBuffer(Version1_3)
	buf.AddCapability(CapabilityShader)
	buf.AddCapability(CapabilityShader)
	buf.Add(SectionMemoryModel, OpMemoryModel, uint32(AddressingModelLogical), uint32(MemoryModelGLSL450))

	data := buf.Bytes()
	if len(data) != 20+8+12 {
		t.Fatalf("module size = %d bytes, want 40", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicNumber {
		t.Errorf("magic = 0x%08X, want 0x%08X", magic, MagicNumber)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != 1<<16|3<<8 {
		t.Errorf("version = 0x%08X, want 0x00010300", version)
	}
	if schema := binary.LittleEndian.Uint32(data[16:20]); schema != 0 {
		t.Errorf("schema = %d, want 0", schema)
	}
	if first := binary.LittleEndian.Uint32(data[20:24]); first != 2<<16|uint32(OpCapability) {
		t.Errorf("first instruction word = 0x%08X", first)
	}
}

func TestEncodeString(t *testing.T) {
	tests := []struct {
		s     string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"main", 2},
		{"GLSL.std.450", 4},
	}
	for _, tt := range tests {
		words := EncodeString(tt.s)
		if len(words) != tt.words {
			t.Errorf("EncodeString(%q) = %d words, want %d", tt.s, len(words), tt.words)
		}
		got, n := DecodeString(append(words, 0xdeadbeef))
		if got != tt.s || n != tt.words {
			t.Errorf("DecodeString = %q, %d; want %q, %d", got, n, tt.s, tt.words)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	buf := NewBuffer(Version1_3)
	ctx := NewContext(buf)
	buf.AddCapability(CapabilityShader)
	buf.Add(SectionMemoryModel, OpMemoryModel, 0, 1)
	void := ctx.MustType(sema.VoidType)
	fnType := ctx.FunctionType(void, nil)
	fn := ctx.NextID()
	label := ctx.NextID()
	buf.AddName(fn, "main")
	buf.Add(SectionFunction, OpFunction, void, fn, 0, fnType)
	buf.Add(SectionFunction, OpLabel, label)
	buf.Add(SectionFunction, OpReturn)
	buf.Add(SectionFunction, OpFunctionEnd)
	buf.AddEntryPoint(ExecutionModelVertex, fn, "main", nil)

	decoded, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if !reflect.DeepEqual(decoded.Encode(), buf.Encode()) {
		t.Error("re-encoded module differs")
	}
	if decoded.Bound != ctx.Bound {
		t.Errorf("bound = %d, want %d", decoded.Bound, ctx.Bound)
	}
	for s := range buf.Sections {
		if len(decoded.Sections[s]) != len(buf.Sections[s]) {
			t.Errorf("section %d has %d instructions, want %d", s, len(decoded.Sections[s]), len(buf.Sections[s]))
		}
	}
	if name := decoded.Name(fn); name != "main" {
		t.Errorf("Name(%d) = %q", fn, name)
	}
	if err := Validate(decoded); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
	}{
		{"short", []uint32{MagicNumber}},
		{"magic", []uint32{1, 0, 0, 1, 0}},
		{"zero count", []uint32{MagicNumber, 0, 0, 1, 0, 0}},
		{"overrun", []uint32{MagicNumber, 0, 0, 1, 0, 3<<16 | uint32(OpCapability), 1}},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.words); err == nil {
			t.Errorf("%s: Decode succeeded", tt.name)
		}
	}
}

func TestInstructionIDs(t *testing.T) {
	tests := []struct {
		inst Instruction
		want []uint32
	}{
		{NewInstruction(OpAccessChain, 1, 2, 3, 4, 5), []uint32{1, 3, 4, 5}},
		{NewInstruction(OpCompositeExtract, 1, 2, 3, 0, 1), []uint32{1, 3}},
		{NewInstruction(OpName, append([]uint32{7}, EncodeString("x")...)...), []uint32{7}},
		{NewInstruction(OpSDSLMemberAccess, append([]uint32{1, 2, 3}, EncodeString("Position")...)...), []uint32{1, 3}},
		{NewInstruction(OpExtInst, 1, 2, 3, 31, 4), []uint32{1, 3, 4}},
		{NewInstruction(OpTypePointer, 9, 6, 8), []uint32{8}},
	}
	for _, tt := range tests {
		var got []uint32
		tt.inst.IDs(func(p *uint32) { got = append(got, *p) })
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s ids = %v, want %v", tt.inst.Op, got, tt.want)
		}
	}

	inst := NewInstruction(OpIAdd, 1, 2, 3, 4)
	inst.IDs(func(p *uint32) { *p += 100 })
	if want := []uint32{101, 2, 103, 104}; !reflect.DeepEqual(inst.Words, want) {
		t.Errorf("rewritten words = %v, want %v", inst.Words, want)
	}
	if inst.Result() != 2 || inst.ResultType() != 101 {
		t.Errorf("Result, ResultType = %d, %d", inst.Result(), inst.ResultType())
	}
}

func TestFunctionRanges(t *testing.T) {
	buf := NewBuffer(Version1_3)
	for _, fn := range []uint32{10, 20} {
		buf.Add(SectionFunction, OpFunction, 1, fn, 0, 2)
		buf.Add(SectionFunction, OpLabel, fn+1)
		buf.Add(SectionFunction, OpReturn)
		buf.Add(SectionFunction, OpFunctionEnd)
	}
	got := buf.FunctionRanges()
	want := []FunctionRange{{ID: 10, Start: 0, End: 4}, {ID: 20, Start: 4, End: 8}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FunctionRanges = %v, want %v", got, want)
	}
	r, ok := buf.Function(20)
	if !ok {
		t.Fatal("Function(20) not found")
	}
	r = buf.Replace(r, []Instruction{
		NewInstruction(OpFunction, 1, 20, 0, 2),
		NewInstruction(OpFunctionEnd),
	})
	if r.End-r.Start != 2 || len(buf.Functions()) != 6 {
		t.Errorf("after Replace: range %v, %d instructions", r, len(buf.Functions()))
	}
}
