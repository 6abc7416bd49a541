package sema

import (
	"reflect"
	"testing"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

func checkSource(t *testing.T, members string) (*syntax.File, *Info, diag.List) {
	t.Helper()
	source := "shader S\n{\n" + members + "\n};\n"
	file, diags := syntax.ParseFile(source)
	if diags.HasErrors() {
		t.Fatalf("parse errors:\n%s", diags.FormatAll(source))
	}
	info, diags := Check(file, DefaultOptions())
	return file, info, diags
}

func hasCode(diags diag.List, code diag.Code) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCheckValid(t *testing.T) {
	tests := []struct {
		name    string
		members string
	}{
		{"constructors", `float4 F() { float3 a = float3(1, 2, 3); return float4(a, 1); }`},
		{"mul", `float4x4 M; float4 F(float4 v) { return mul(v, M); }`},
		{"streams", `stream float4 Pos : SV_Position; void VSMain() { streams.Pos = float4(0, 0, 0, 1); }`},
		{"loop", `float F() { float s = 0; for (int i = 0; i < 4; i++) { s += 1; } return s; }`},
		{"while", `int F() { int n = 10; while (n > 0) { n -= 1; if (n == 5) break; } return n; }`},
		{"sibling blocks", `void F() { { int a = 1; } { int a = 2; } }`},
		{"ternary", `float F(bool b) { return b ? 1.0 : 2.0; }`},
		{"swizzle", `float2 F(float4 v) { return v.xy + v.zw; }`},
		{"matrix swizzle", `float F(float4x4 m) { return m._m01 + m._11; }`},
		{"struct", `struct L { float3 D; }; float3 F(L l) { return l.D; }`},
		{"cbuffer", `cbuffer PerFrame { float4 Color; }; float4 F() { return Color; }`},
		{"intrinsics", `float F(float3 a, float3 b) { return dot(normalize(a), b) * length(cross(a, b)); }`},
		{"literal broadcast", `float3 F(float3 v) { return v * 2 + 0.5; }`},
		{"use before declaration", `float F() { return G(); } float G() { return 1; }`},
		{"discard", `void F(float a) { if (a < 0) discard; }`},
		{"if else returns", `float F(bool b) { if (b) return 1; else return 2; }`},
		{"array", `float A[4]; float F(int i) { return A[i]; }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := checkSource(t, tt.members)
			if diags.HasErrors() {
				t.Fatalf("unexpected errors: %v", diags.Errors())
			}
		})
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		members string
		code    diag.Code
	}{
		{"vector plus scalar variable", `float3 F(float3 a, float b) { return a + b; }`, diag.CodeInvalidOperands},
		{"implicit int to float", `void F() { int i = 1; float x = i; }`, diag.CodeTypeMismatch},
		{"shadowing", `void F() { int a = 1; { int a = 2; } }`, diag.CodeRedeclared},
		{"undeclared", `void F() { x = 1; }`, diag.CodeUndeclared},
		{"bad swizzle", `float2 F(float4 v) { return v.xq; }`, diag.CodeInvalidSwizzle},
		{"mixed swizzle sets", `float2 F(float4 v) { return v.xg; }`, diag.CodeInvalidSwizzle},
		{"break outside loop", `void F() { break; }`, diag.CodeBreakOutsideLoop},
		{"missing return", `float F() { }`, diag.CodeMissingReturn},
		{"non-bool condition", `void F() { if (1) { } }`, diag.CodeConditionNotBool},
		{"constructor arity", `float3 F() { return float3(1, 2); }`, diag.CodeConstructorArity},
		{"assign to uniform", `cbuffer C { float4 X; }; void F() { X = float4(0, 0, 0, 0); }`, diag.CodeNotAssignable},
		{"assign to const", `void F() { const int k = 1; k = 2; }`, diag.CodeNotAssignable},
		{"unknown stream", `void F() { streams.Missing = 1; }`, diag.CodeUnknownStream},
		{"recursion", `float F(float a) { return F(a); }`, diag.CodeUnsupportedFeature},
		{"undeclared method", `void F() { float x = G(); }`, diag.CodeUndeclared},
		{"argument count", `float F(float a) { return pow(a); }`, diag.CodeArgumentCount},
		{"not callable", `void F() { float x = 1; x(); }`, diag.CodeNotCallable},
		{"unknown type", `Unknown X;`, diag.CodeUnknownType},
		{"float index", `float F(float4 v) { return v[1.0]; }`, diag.CodeNonScalarIndex},
		{"index out of range", `float F(float4 v) { return v[4]; }`, diag.CodeInvalidAccessor},
		{"duplicate method", `void F() { } void F() { }`, diag.CodeRedeclared},
		{"out parameter", `void F(out float x) { }`, diag.CodeUnsupportedFeature},
		{"float literal as int", `void F() { int i = 1.5; }`, diag.CodeTypeMismatch},
		{"void returns value", `void F() { return 1; }`, diag.CodeTypeMismatch},
		{"repeated swizzle target", `void F() { float4 v = 0; v.xx = float2(1, 2); }`, diag.CodeInvalidSwizzle},
		{"non-constant global", `float A = 1; float B = A;`, diag.CodeUnsupportedFeature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := checkSource(t, tt.members)
			if !hasCode(diags, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, diags)
			}
		})
	}
}

func TestCheckStreams(t *testing.T) {
	_, info, diags := checkSource(t, `
stream float4 Position : SV_Position;
stream float3 Normal : NORMAL;
stream float3 Color;
void VSMain()
{
    streams.Position = float4(streams.Normal, 1);
    streams.Color.x += 1;
}`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	var names []string
	for _, f := range info.Streams.Fields {
		names = append(names, f.Name)
	}
	if want := []string{"Position", "Normal", "Color"}; !reflect.DeepEqual(names, want) {
		t.Errorf("stream fields = %v, want %v", names, want)
	}
	if got := info.Streams.Fields[0].Semantic; got != "SV_Position" {
		t.Errorf("Position semantic = %q", got)
	}
	m := info.Method("VSMain")
	if m == nil {
		t.Fatal("VSMain not recorded")
	}
	if want := []string{"Normal", "Color"}; !reflect.DeepEqual(m.Reads, want) {
		t.Errorf("reads = %v, want %v", m.Reads, want)
	}
	if want := []string{"Position", "Color"}; !reflect.DeepEqual(m.Writes, want) {
		t.Errorf("writes = %v, want %v", m.Writes, want)
	}
}

func TestLiteralCoercion(t *testing.T) {
	file, info, diags := checkSource(t, `float3 F(float x) { float3 v = 2; float3 w = float3(x); return v * 0.5 + w; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	method := file.Decls[0].(*syntax.ShaderDecl).Members[0].(*syntax.MethodDecl)
	v := method.Body.Stmts[0].(*syntax.VariableDecl)
	if got := info.TypeOf(v.Value); !got.Equal(Float) {
		t.Errorf("literal initializer type = %s, want float", got)
	}
	if sym := info.Defs[v]; sym == nil || !sym.Type.Equal(Float3) {
		t.Errorf("v symbol = %+v", sym)
	}
	w := method.Body.Stmts[1].(*syntax.VariableDecl)
	if call := info.Calls[w.Value.(*syntax.MethodCall)]; call == nil || call.Kind != CallConvert {
		t.Errorf("float3(x) call = %+v, want conversion", call)
	}
	ret := method.Body.Stmts[2].(*syntax.Return)
	if got := info.TypeOf(ret.Value); !got.Equal(Float3) {
		t.Errorf("return expression type = %s, want float3", got)
	}
}

func TestSymbolTableScopes(t *testing.T) {
	st := NewSymbolTable()
	if _, ok := st.Declare(&Symbol{Name: "g", Kind: SymGlobal, Type: Float}); !ok {
		t.Fatal("declare g failed")
	}
	st.Push()
	if _, ok := st.Declare(&Symbol{Name: "a", Type: Int}); !ok {
		t.Fatal("declare a failed")
	}
	if prev, ok := st.Declare(&Symbol{Name: "g", Type: Int}); ok || prev.Kind != SymGlobal {
		t.Fatalf("shadowing g: ok=%v prev=%v", ok, prev)
	}
	st.Pop()
	if st.Lookup("a") != nil {
		t.Error("a visible after pop")
	}
	st.Push()
	if _, ok := st.Declare(&Symbol{Name: "a", Type: Float}); !ok {
		t.Error("sibling scope cannot reuse a")
	}
	if st.Depth() != 2 {
		t.Errorf("depth = %d, want 2", st.Depth())
	}
	st.Pop()
	defer func() {
		if recover() == nil {
			t.Error("popping the global scope did not panic")
		}
	}()
	st.Pop()
}

func TestLiteralType(t *testing.T) {
	tests := []struct {
		text string
		want *SymbolType
	}{
		{"1", Int},
		{"1u", UInt},
		{"1l", Long},
		{"1ul", ULong},
		{"0x1F", Int},
		{"0xFFu", UInt},
		{"1.0", Float},
		{"1.", Float},
		{"1.5f", Float},
		{"1f", Float},
		{"2e3", Float},
		{"1.5h", Half},
		{"1.5d", Double},
		{"1.5lf", Double},
	}
	for _, tt := range tests {
		got, ok := LiteralType(tt.text)
		if !ok || got != tt.want {
			t.Errorf("LiteralType(%q) = %v, %v; want %v", tt.text, got, ok, tt.want)
		}
	}
	if _, ok := LiteralType("1q"); ok {
		t.Error(`LiteralType("1q") succeeded`)
	}
}

func TestSwizzles(t *testing.T) {
	tests := []struct {
		typ  *SymbolType
		sw   string
		want []int
		ok   bool
	}{
		{Float4, "xyzw", []int{0, 1, 2, 3}, true},
		{Float4, "bgr", []int{2, 1, 0}, true},
		{Float4, "xx", []int{0, 0}, true},
		{Float2, "z", nil, false},
		{Float4, "xg", nil, false},
		{Float4, "xyzwx", nil, false},
		{Float, "xxx", []int{0, 0, 0}, true},
	}
	for _, tt := range tests {
		got, ok := VectorSwizzle(tt.typ, tt.sw)
		if ok != tt.ok || (ok && !reflect.DeepEqual(got, tt.want)) {
			t.Errorf("VectorSwizzle(%s, %q) = %v, %v; want %v, %v", tt.typ, tt.sw, got, ok, tt.want, tt.ok)
		}
	}

	elems, ok := MatrixSwizzle(Float4x4, "_m00_m12")
	if !ok || !reflect.DeepEqual(elems, [][2]int{{0, 0}, {1, 2}}) {
		t.Errorf("zero-based matrix swizzle = %v, %v", elems, ok)
	}
	elems, ok = MatrixSwizzle(Float4x4, "_11_44")
	if !ok || !reflect.DeepEqual(elems, [][2]int{{0, 0}, {3, 3}}) {
		t.Errorf("one-based matrix swizzle = %v, %v", elems, ok)
	}
	if _, ok := MatrixSwizzle(MatrixOf(Float, 2, 2), "_m22"); ok {
		t.Error("out of range matrix swizzle accepted")
	}
}

func TestBuiltinType(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"float3", nil, "float3"},
		{"float4x3", nil, "float4x3"},
		{"vector", []string{"int", "2"}, "int2"},
		{"matrix", []string{"float", "3", "3"}, "float3x3"},
		{"dword", nil, "uint"},
		{"void", nil, "void"},
	}
	for _, tt := range tests {
		got := BuiltinType(tt.name, tt.args)
		if got == nil || got.String() != tt.want {
			t.Errorf("BuiltinType(%s, %v) = %v, want %s", tt.name, tt.args, got, tt.want)
		}
	}
	for _, name := range []string{"float5", "float1x4", "Light"} {
		if got := BuiltinType(name, nil); got != nil {
			t.Errorf("BuiltinType(%s) = %v, want nil", name, got)
		}
	}
}
