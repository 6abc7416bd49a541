package tac

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/syntax"
)

func lowerSource(t *testing.T, members string) *Program {
	t.Helper()
	prog, err := tryLower(t, members)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return prog
}

func tryLower(t *testing.T, members string) (*Program, error) {
	t.Helper()
	source := "shader S\n{\n" + members + "\n};\n"
	file, diags := syntax.ParseFile(source)
	if diags.HasErrors() {
		t.Fatalf("parse errors:\n%s", diags.FormatAll(source))
	}
	info, diags := sema.Check(file, sema.DefaultOptions())
	if diags.HasErrors() {
		t.Fatalf("check errors:\n%s", diags.FormatAll(source))
	}
	return Lower(file, info)
}

func function(t *testing.T, prog *Program, name string) *Function {
	t.Helper()
	fn := prog.Function(name)
	if fn == nil {
		t.Fatalf("function %s not lowered", name)
	}
	return fn
}

func registersOf[R Register](fn *Function) []R {
	var out []R
	for _, r := range fn.Registers {
		if x, ok := r.(R); ok {
			out = append(out, x)
		}
	}
	return out
}

func TestLowerConstructors(t *testing.T) {
	prog := lowerSource(t, `float4 F() { float3 a = float3(1, 2, 3); return float4(a, 1); }`)
	fn := function(t, prog, "F")

	var composites []*Constant
	for _, c := range registersOf[*Constant](fn) {
		if c.IsComposite() {
			composites = append(composites, c)
		}
	}
	if len(composites) != 2 {
		t.Fatalf("got %d composite constants, want 2:\n%s", len(composites), Dump(fn))
	}
	if want := []string{"a", composites[0].Args[0]}; !reflect.DeepEqual(composites[1].Args, want) {
		t.Errorf("float4 args = %v, want %v", composites[1].Args, want)
	}
	last, ok := fn.Registers[len(fn.Registers)-1].(*Return)
	if !ok || last.Value != composites[1].Name {
		t.Errorf("last register = %s, want return %s", String(fn.Registers[len(fn.Registers)-1]), composites[1].Name)
	}
	if _, ok := fn.Registers[0].(*Label); !ok {
		t.Errorf("first register = %s, want a label", String(fn.Registers[0]))
	}
}

func TestLowerConstantDedup(t *testing.T) {
	prog := lowerSource(t, `float F(float x) { return x * 2 + 2; }`)
	fn := function(t, prog, "F")
	n := 0
	for _, c := range registersOf[*Constant](fn) {
		if !c.IsComposite() {
			n++
			if c.Bits != uint64(math.Float32bits(2)) {
				t.Errorf("constant bits = %#x", c.Bits)
			}
		}
	}
	if n != 1 {
		t.Errorf("got %d scalar constants, want 1:\n%s", n, Dump(fn))
	}
	if got := len(registersOf[*Assign](fn)); got != 2 {
		t.Errorf("got %d assigns, want 2", got)
	}
}

func TestLowerLiterals(t *testing.T) {
	tests := []struct {
		name    string
		members string
		bits    uint64
	}{
		{"negative int", `int F() { return -3; }`, 0xfffffffd},
		{"negative float", `float F() { return -(1.5); }`, uint64(math.Float32bits(-1.5))},
		{"hex uint", `uint F() { return 0x10u; }`, 16},
		{"int to float", `float F() { return 1; }`, uint64(math.Float32bits(1))},
		{"half", `half F() { return 1; }`, 0x3c00},
		{"double", `double F() { return 0.5; }`, math.Float64bits(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := function(t, lowerSource(t, tt.members), "F")
			consts := registersOf[*Constant](fn)
			if len(consts) != 1 || consts[0].Bits != tt.bits {
				t.Fatalf("constants:\n%s", Dump(fn))
			}
		})
	}
}

func TestLowerBroadcast(t *testing.T) {
	fn := function(t, lowerSource(t, `float3 F(float3 v) { return v * 2; }`), "F")
	var splat *Constant
	for _, c := range registersOf[*Constant](fn) {
		if c.IsComposite() {
			splat = c
		}
	}
	if splat == nil || len(splat.Args) != 3 || splat.Args[0] != splat.Args[2] {
		t.Fatalf("no splat:\n%s", Dump(fn))
	}
	a := registersOf[*Assign](fn)
	if len(a) != 1 || a[0].Right != splat.Name || !a[0].Operand.Equal(sema.Float3) {
		t.Errorf("assign:\n%s", Dump(fn))
	}
}

func TestLowerControlFlow(t *testing.T) {
	fn := function(t, lowerSource(t, `float F(bool b) { if (b) return 1; else return 2; }`), "F")
	branches := registersOf[*Branch](fn)
	if len(branches) != 1 || branches[0].Merge == "" {
		t.Fatalf("branches:\n%s", Dump(fn))
	}
	if got := len(registersOf[*Label](fn)); got != 4 {
		t.Errorf("got %d labels, want 4:\n%s", got, Dump(fn))
	}
	if got := len(registersOf[*Jump](fn)); got != 0 {
		t.Errorf("got %d jumps after returns, want 0", got)
	}
	// Both branches return; the merge block is left open and unreachable.
	last, ok := fn.Registers[len(fn.Registers)-1].(*Label)
	if !ok || last.Name != branches[0].Merge {
		t.Errorf("last register = %s, want merge label", String(fn.Registers[len(fn.Registers)-1]))
	}
}

func TestLowerLoop(t *testing.T) {
	fn := function(t, lowerSource(t, `float F() { float s = 0; for (int i = 0; i < 4; i++) { if (i == 2) continue; s += 1; } return s; }`), "F")
	var declared []string
	for _, d := range registersOf[*Declare](fn) {
		declared = append(declared, d.Name)
	}
	if !reflect.DeepEqual(declared, []string{"s", "i"}) {
		t.Errorf("declared = %v, want [s i]", declared)
	}
	merges := registersOf[*LoopMerge](fn)
	if len(merges) != 1 {
		t.Fatalf("loop merges:\n%s", Dump(fn))
	}
	for i, r := range fn.Registers {
		if lm, ok := r.(*LoopMerge); ok {
			br, ok := fn.Registers[i+1].(*Branch)
			if !ok || br.False != lm.Merge {
				t.Errorf("loop header does not branch to merge:\n%s", Dump(fn))
			}
		}
	}
	cont := merges[0].Continue
	jumps := 0
	for _, j := range registersOf[*Jump](fn) {
		if j.Target == cont {
			jumps++
		}
	}
	// continue and the fall-through at the end of the body.
	if jumps != 2 {
		t.Errorf("got %d jumps to continue block, want 2:\n%s", jumps, Dump(fn))
	}
}

func TestLowerStreams(t *testing.T) {
	prog := lowerSource(t, `stream float4 Pos : SV_Position; stream float3 N;
		void VSMain() { streams.Pos = float4(streams.N, 1); }`)
	fn := function(t, prog, "VSMain")
	chains := registersOf[*ChainRegister](fn)
	if len(chains) != 2 {
		t.Fatalf("chains:\n%s", Dump(fn))
	}
	if chains[0].Base != StreamsBase || chains[0].Stream != "N" || chains[1].Stream != "Pos" {
		t.Errorf("chains:\n%s", Dump(fn))
	}
	stores := registersOf[*Copy](fn)
	if len(stores) != 1 || stores[0].Declare || stores[0].Name != chains[1].Name {
		t.Errorf("stores:\n%s", Dump(fn))
	}
	if _, ok := fn.Registers[len(fn.Registers)-1].(*Return); !ok {
		t.Errorf("void function does not end with return")
	}
	if prog.Streams == nil || len(prog.Streams.Fields) != 2 {
		t.Errorf("program streams = %v", prog.Streams)
	}
}

func TestLowerSwizzleStore(t *testing.T) {
	fn := function(t, lowerSource(t, `float4 F() { float4 v = float4(0, 0, 0, 0); v.xy = float2(1, 2); v.w = 3; return v; }`), "F")
	shuffles := registersOf[*Shuffle](fn)
	if len(shuffles) != 1 || !reflect.DeepEqual(shuffles[0].Components, []int{4, 5, 2, 3}) {
		t.Fatalf("shuffles:\n%s", Dump(fn))
	}
	chains := registersOf[*ChainRegister](fn)
	if len(chains) != 1 || chains[0].Base != "v" || !reflect.DeepEqual(chains[0].Path, []Index{{Const: 3}}) {
		t.Errorf("component store:\n%s", Dump(fn))
	}
}

func TestLowerUniformAndGlobals(t *testing.T) {
	prog := lowerSource(t, `cbuffer PerFrame { float4 Color; float Scale; };
		static const float3 K = float3(1, 2, 3);
		float A[4];
		float4 F(int i) { return Color * float4(K, A[i] * Scale); }`)
	if len(prog.Globals) != 2 || prog.Globals[0].Name != "K" || prog.Globals[0].Init == "" {
		t.Fatalf("globals = %+v", prog.Globals)
	}
	if len(prog.Init) != 4 {
		t.Errorf("got %d init registers, want 4", len(prog.Init))
	}
	fn := function(t, prog, "F")
	var bases []string
	for _, c := range registersOf[*ChainRegister](fn) {
		bases = append(bases, c.Base)
	}
	if !reflect.DeepEqual(bases, []string{"PerFrame", "A", "PerFrame"}) {
		t.Errorf("chain bases = %v:\n%s", bases, Dump(fn))
	}
	loads := registersOf[*Load](fn)
	if len(loads) != 4 {
		t.Errorf("got %d loads, want 4:\n%s", len(loads), Dump(fn))
	}
}

func TestLowerCalls(t *testing.T) {
	fn := function(t, lowerSource(t, `float G(float3 v) { return length(v); }
		float4 F(float4x4 m, float4 v) {
			float s = saturate(G(float3(1, 1, 1)));
			return mul(v, m) * float4(max(v.x, 0), s, s, s);
		}`), "F")
	var called []string
	for _, c := range registersOf[*Call](fn) {
		if c.Function != "" {
			called = append(called, c.Function)
		} else {
			called = append(called, c.Intrinsic)
		}
	}
	if want := []string{"G", "saturate", "mul", "max"}; !reflect.DeepEqual(called, want) {
		t.Errorf("calls = %v, want %v", called, want)
	}
}

func TestLowerIncrement(t *testing.T) {
	fn := function(t, lowerSource(t, `int F() { int i = 0; int j = i++; return i + j; }`), "F")
	copies := registersOf[*Copy](fn)
	// i = 0, i = i + 1, j := old i
	if len(copies) != 3 || !copies[2].Declare {
		t.Fatalf("copies:\n%s", Dump(fn))
	}
	assign := registersOf[*Assign](fn)[0]
	if copies[2].Source != assign.Left {
		t.Errorf("postfix increment does not yield the old value:\n%s", Dump(fn))
	}
}

func TestLowerErrors(t *testing.T) {
	_, err := tryLower(t, `static int K = 1 + 2;`)
	var d *diag.Diagnostic
	if !errors.As(err, &d) || d.Code != diag.CodeUnsupportedLowering {
		t.Errorf("err = %v, want %s", err, diag.CodeUnsupportedLowering)
	}
}

func TestHalfBits(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{0, 0},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
		{1e6, 0x7c00},
		{float32(math.Inf(-1)), 0xfc00},
	}
	for _, tt := range tests {
		if got := halfBits(tt.in); got != tt.want {
			t.Errorf("halfBits(%v) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
