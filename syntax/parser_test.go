package syntax

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gogpu/sdsl/diag"
)

const lightingSource = `
shader Lighting : ShaderBase, Transformation
{
    stream float4 Position : SV_Position;
    stream float3 Normal : NORMAL;
    float Intensity = 0.5f;
    compose ComputeColor Albedo;

    struct Light
    {
        float3 Direction;
        float4 Color;
    };

    cbuffer PerFrame
    {
        float4x4 ViewProjection;
        Light Lights[4];
    };

    float3 Shade(in float3 n, float3 l)
    {
        float d = max(dot(n, l), 0.0);
        return n * d;
    }

    override stage void VSMain()
    {
        base.VSMain();
        streams.Normal = normalize(streams.Normal);
        for (int i = 0; i < 4; i++)
        {
            if (i == 2)
                break;
            streams.Position.xyz += Lights[i].Direction;
        }
    }
};

effect LitEffect
{
    using params MaterialKeys;
    mixin Lighting;
    if (MaterialKeys.UseNormalMap)
        mixin compose Normals = NormalFromTexture;
    else
        mixin remove NormalFromTexture;
    mixin macro LIGHT_COUNT = MaterialKeys.LightCount;
};

params MaterialKeys
{
    bool UseNormalMap = true;
    int LightCount;
};
`

func parseSource(t *testing.T, source string) *File {
	t.Helper()
	file, diags := ParseFile(source)
	if diags.HasErrors() {
		t.Fatalf("parse errors:\n%s", diags.FormatAll(source))
	}
	return file
}

func TestParseShader(t *testing.T) {
	file := parseSource(t, lightingSource)
	if len(file.Decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(file.Decls))
	}

	shader, ok := file.Decls[0].(*ShaderDecl)
	if !ok {
		t.Fatalf("expected *ShaderDecl, got %T", file.Decls[0])
	}
	if shader.Name != "Lighting" {
		t.Errorf("expected shader name Lighting, got %q", shader.Name)
	}
	if !reflect.DeepEqual(shader.Bases, []string{"ShaderBase", "Transformation"}) {
		t.Errorf("unexpected bases %v", shader.Bases)
	}
	if len(shader.Members) != 8 {
		t.Fatalf("expected 8 members, got %d", len(shader.Members))
	}

	pos := shader.Members[0].(*VariableDecl)
	if !pos.Modifiers.Has(ModStream) || pos.Type.Name != "float4" || pos.Semantic != "SV_Position" {
		t.Errorf("unexpected stream member %+v", pos)
	}

	intensity := shader.Members[2].(*VariableDecl)
	if n, ok := intensity.Value.(*Number); !ok || n.Text != "0.5f" {
		t.Errorf("expected initializer 0.5f, got %#v", intensity.Value)
	}

	comp := shader.Members[3].(*CompositionDecl)
	if comp.Type != "ComputeColor" || comp.Name != "Albedo" || comp.Array {
		t.Errorf("unexpected composition %+v", comp)
	}

	light := shader.Members[4].(*StructDecl)
	if light.Name != "Light" || len(light.Fields) != 2 {
		t.Errorf("unexpected struct %+v", light)
	}

	cb := shader.Members[5].(*CBufferDecl)
	if len(cb.Members) != 2 || cb.Members[1].ArraySize == nil {
		t.Errorf("unexpected cbuffer %+v", cb)
	}

	shade := shader.Members[6].(*MethodDecl)
	if shade.Name != "Shade" || len(shade.Params) != 2 {
		t.Fatalf("unexpected method %+v", shade)
	}
	if shade.Params[0].Qualifier != "in" || shade.Params[1].Qualifier != "" {
		t.Errorf("unexpected qualifiers %q %q", shade.Params[0].Qualifier, shade.Params[1].Qualifier)
	}
	if len(shade.Body.Stmts) != 2 {
		t.Errorf("expected 2 statements, got %d", len(shade.Body.Stmts))
	}

	vs := shader.Members[7].(*MethodDecl)
	if !vs.Modifiers.Has(ModOverride | ModStage) {
		t.Errorf("expected override stage modifiers, got %b", vs.Modifiers)
	}
	if len(vs.Body.Stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(vs.Body.Stmts))
	}
	call := vs.Body.Stmts[0].(*ExpressionStatement).X.(*MethodCall)
	if call.Name != "VSMain" || call.Receiver.(*VariableName).Name != "base" {
		t.Errorf("unexpected base call %+v", call)
	}
	if _, ok := vs.Body.Stmts[1].(*AssignChain); !ok {
		t.Errorf("expected *AssignChain, got %T", vs.Body.Stmts[1])
	}
	loop := vs.Body.Stmts[2].(*For)
	if _, ok := loop.Init.(*VariableDecl); !ok {
		t.Errorf("expected declaration in for init, got %T", loop.Init)
	}
	if loop.Cond == nil || loop.Post == nil {
		t.Error("expected for condition and post statement")
	}
}

func TestParseEffect(t *testing.T) {
	file := parseSource(t, lightingSource)
	effect := file.Decls[1].(*EffectDecl)
	if effect.Name != "LitEffect" || effect.Partial {
		t.Fatalf("unexpected effect %+v", effect)
	}
	stmts := effect.Body.Stmts
	if len(stmts) != 4 {
		t.Fatalf("expected 4 effect statements, got %d", len(stmts))
	}
	if u := stmts[0].(*UsingParams); u.Name != "MaterialKeys" {
		t.Errorf("expected using params MaterialKeys, got %q", u.Name)
	}
	cond := stmts[2].(*If)
	compose := cond.Then.(*Mixin)
	if compose.Kind != MixinComposeSet || compose.Name != "Normals" {
		t.Errorf("unexpected compose mixin %+v", compose)
	}
	if remove := cond.Else.(*Mixin); remove.Kind != MixinRemove {
		t.Errorf("expected remove mixin, got %v", remove.Kind)
	}
	macro := stmts[3].(*Mixin)
	if macro.Kind != MixinMacro || macro.Name != "LIGHT_COUNT" {
		t.Errorf("unexpected macro mixin %+v", macro)
	}

	params := file.Decls[2].(*ParamsDecl)
	if len(params.Params) != 2 || params.Params[0].Value == nil || params.Params[1].Value != nil {
		t.Errorf("unexpected params block %+v", params)
	}
}

func TestParseExprPrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string // fully parenthesized
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"a - b - c", "((a - b) - c)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a && b || c && d", "((a && b) || (c && d))"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"a << 2 + 1", "(a << (2 + 1))"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"-x * y", "((-x) * y)"},
		{"!a.b", "(!a.b)"},
		{"i++ + 1", "((i++) + 1)"},
		{"v.xyz[2]", "v.xyz[2]"},
		{"(a + b) * c", "((a + b) * c)"},
		{"float4(p, 1.0).x", "float4(p, 1.0).x"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e, diags := ParseExpr(tt.source)
			if diags.HasErrors() {
				t.Fatalf("parse errors: %v", diags)
			}
			if got := parenthesize(e); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// parenthesize renders e with explicit grouping, dropping source parens.
func parenthesize(e Expr) string {
	switch e := e.(type) {
	case *Operation:
		return "(" + parenthesize(e.Left) + " " + e.Op + " " + parenthesize(e.Right) + ")"
	case *Unary:
		if e.Postfix {
			return "(" + parenthesize(e.X) + e.Op + ")"
		}
		return "(" + e.Op + parenthesize(e.X) + ")"
	case *Ternary:
		return "(" + parenthesize(e.Cond) + " ? " + parenthesize(e.Then) + " : " + parenthesize(e.Else) + ")"
	case *Paren:
		return parenthesize(e.X)
	case *ChainAccessor:
		return parenthesize(e.X) + "." + e.Field
	case *ArrayAccessor:
		return parenthesize(e.X) + "[" + parenthesize(e.Index) + "]"
	case *MethodCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = parenthesize(a)
		}
		call := e.Name + "(" + strings.Join(args, ", ") + ")"
		if e.Receiver != nil {
			return parenthesize(e.Receiver) + "." + call
		}
		return call
	default:
		return exprString(e)
	}
}

func TestParseNumbers(t *testing.T) {
	tests := []struct {
		source string
		valid  bool
	}{
		{"1", true},
		{"1.0", true},
		{"1.0f", true},
		{"1.f", true},
		{".5", true},
		{"2e10", true},
		{"1.5e-3h", true},
		{"0x1F", true},
		{"7u", true},
		{"3lf", true},
		{"0x", false},
		{"1.0q", false},
		{"12abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e, diags := ParseExpr(tt.source)
			if tt.valid {
				if diags.HasErrors() {
					t.Fatalf("unexpected errors: %v", diags)
				}
				if n, ok := e.(*Number); !ok || n.Text != tt.source {
					t.Errorf("expected number %q, got %#v", tt.source, e)
				}
				return
			}
			if !hasCode(diags, diag.CodeInvalidNumber) {
				t.Errorf("expected %s, got %v", diag.CodeInvalidNumber, diags)
			}
		})
	}
}

func TestParseStatementForms(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"x = 1;", "*syntax.Assign"},
		{"x += y * 2;", "*syntax.Assign"},
		{"a.b[1] = 2;", "*syntax.AssignChain"},
		{"float3 v = float3(1, 2, 3);", "*syntax.VariableDecl"},
		{"float a[4];", "*syntax.VariableDecl"},
		{"const int n = 2;", "*syntax.VariableDecl"},
		{"foo(1);", "*syntax.ExpressionStatement"},
		{"i++;", "*syntax.ExpressionStatement"},
		{"return;", "*syntax.Return"},
		{"discard;", "*syntax.Flow"},
		{"while (x < 3) x++;", "*syntax.While"},
		{"if (a) { b = 1; } else b = 2;", "*syntax.If"},
		{"for (;;) {}", "*syntax.For"},
		{"{ x = 1; y = 2; }", "*syntax.Block"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			s, diags := ParseStatement(tt.source)
			if diags.HasErrors() {
				t.Fatalf("parse errors: %v", diags)
			}
			if got := reflect.TypeOf(s).String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   diag.Code
	}{
		{"missing semicolon", "shader A { float x }", diag.CodeExpectedToken},
		{"bad initializer", "shader A { float x = ; };", diag.CodeExpectedExpr},
		{"garbage at top level", "123;", diag.CodeExpectedDecl},
		{"unterminated comment", "shader A {}; /* open", diag.CodeUnterminated},
		{"bad assignment target", "void f() { 1 = 2; }", diag.CodeInvalidAssignTgt},
		{"compose without name", "effect E { mixin compose A; };", diag.CodeInvalidMixin},
		{"plus-assign outside compose", "effect E { mixin macro A += B; };", diag.CodeInvalidMixin},
		{"missing body brace", "shader A { void f() }", diag.CodeExpectedToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := ParseFile(tt.source)
			if !hasCode(diags, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, diags)
			}
		})
	}
}

func TestParseRecovery(t *testing.T) {
	source := `
123;
shader A
{
    float x = ;
    float y;
    void f()
    {
        x = ;
        y = 1;
    }
};
shader B {};
`
	file, diags := ParseFile(source)
	if !diags.HasErrors() {
		t.Fatal("expected errors")
	}
	if len(file.Decls) != 2 {
		t.Fatalf("expected 2 declarations after recovery, got %d", len(file.Decls))
	}
	a := file.Decls[0].(*ShaderDecl)
	if len(a.Members) != 3 {
		t.Fatalf("expected 3 members after recovery, got %d", len(a.Members))
	}
	f := a.Members[2].(*MethodDecl)
	if len(f.Body.Stmts) != 1 {
		t.Errorf("expected the valid statement to survive, got %d statements", len(f.Body.Stmts))
	}
	for i := 1; i < len(diags); i++ {
		if diags[i].Span.Start.Offset < diags[i-1].Span.Start.Offset {
			t.Errorf("diagnostics not sorted by position")
		}
	}
}

func TestPrintRoundTrip(t *testing.T) {
	file := parseSource(t, lightingSource)
	printed := PrintFile(file)

	again, diags := ParseFile(printed)
	if diags.HasErrors() {
		t.Fatalf("printed source does not parse:\n%s\n%s", printed, diags.FormatAll(printed))
	}

	stripSpans(reflect.ValueOf(file))
	stripSpans(reflect.ValueOf(again))
	if !reflect.DeepEqual(file.Decls, again.Decls) {
		t.Errorf("round trip changed the tree; printed:\n%s", printed)
	}
	if second := PrintFile(again); second != printed {
		t.Errorf("printing is not stable:\n%s\n---\n%s", printed, second)
	}
}

func TestPrintExpressions(t *testing.T) {
	tests := []string{
		"a + b * c",
		"(a + b) * c",
		"- -x",
		"-(-x)",
		"x.yzw[i + 1]",
		"lerp(a, b, 0.5) * c.Sample(s, uv)",
		"a ? b : c",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			e, diags := ParseExpr(src)
			if diags.HasErrors() {
				t.Fatalf("parse errors: %v", diags)
			}
			if got := Print(e); got != src {
				t.Errorf("got %q, want %q", got, src)
			}
		})
	}
}

func hasCode(l diag.List, code diag.Code) bool {
	for _, d := range l {
		if d.Code == code {
			return true
		}
	}
	return false
}

var spanType = reflect.TypeOf(diag.Span{})

// stripSpans zeroes every diag.Span reachable from v.
func stripSpans(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			stripSpans(v.Elem())
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			stripSpans(v.Index(i))
		}
	case reflect.Struct:
		if v.Type() == spanType {
			if v.CanSet() {
				v.Set(reflect.Zero(spanType))
			}
			return
		}
		for i := 0; i < v.NumField(); i++ {
			stripSpans(v.Field(i))
		}
	}
}
