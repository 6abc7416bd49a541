package spirv

import (
	"strings"
	"testing"
)

func TestEliminateDeadFunctions(t *testing.T) {
	src := `
float Used() { return 1.0; }
float Unused() { return 2.0; }
float Kept() { return 3.0; }
void main() { float x = Used(); }
`
	buf := emitSource(t, src)
	fn := func(name string) uint32 {
		for _, inst := range buf.Sections[SectionDebug] {
			if inst.Op == OpName && buf.Name(inst.Words[0]) == name {
				return inst.Words[0]
			}
		}
		t.Fatalf("no function named %s", name)
		return 0
	}
	main, kept := fn("main"), fn("Kept")
	buf.AddEntryPoint(ExecutionModelFragment, main, "main", nil)

	if n := EliminateDeadFunctions(buf, []uint32{kept}); n != 1 {
		t.Errorf("removed %d functions, want 1", n)
	}
	got := names(buf)
	for _, want := range []string{"main", "Used", "Kept"} {
		if !contains(got, want) {
			t.Errorf("function %s removed", want)
		}
	}
	if contains(got, "Unused") {
		t.Error("Unused still named")
	}
	if err := Validate(buf); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if n := EliminateDeadFunctions(buf, []uint32{kept}); n != 0 {
		t.Errorf("second pass removed %d functions", n)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestDisassemble(t *testing.T) {
	buf := emitSource(t, `float4 F(float4 v) { return v * 2.0; }`)
	text := Disassemble(buf)
	for _, want := range []string{
		"; Version: 1.3",
		"OpCapability Shader",
		"OpMemoryModel Logical GLSL450",
		`OpName %_`,
		"OpTypeFloat 32",
		"OpConstant %_",
		" 2\n",
		"OpConstantComposite",
		"OpFMul",
		"OpFunctionEnd",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly lacks %q:\n%s", want, text)
		}
	}
}
