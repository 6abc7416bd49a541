package effect

import (
	"reflect"
	"testing"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/syntax"
)

const effectSource = `
params MaterialKeys
{
    bool UseNormalMap = true;
    int LightCount = 2;
    float Roughness;
};

shader ShaderBase
{
    stream float4 Position : SV_Position;
    void VSMain() { }
};

shader Lighting : ShaderBase
{
    stream float3 Normal : NORMAL;
    override void VSMain()
    {
        base.VSMain();
        streams.Normal = normalize(streams.Normal);
    }
};

shader NormalFromTexture { };
shader NormalFromMesh { };
shader Extra { };

effect LitEffect
{
    using params MaterialKeys;
    mixin Lighting;
    mixin Extra;
    if (MaterialKeys.UseNormalMap && LightCount > 1)
        mixin compose Normals = NormalFromTexture;
    else
        mixin compose Normals = NormalFromMesh;
    mixin macro LIGHT_COUNT = MaterialKeys.LightCount;
    mixin macro ROUGH = Roughness;
    if (!UseNormalMap)
        mixin remove Extra;
};
`

func parse(t *testing.T, source string) *syntax.File {
	t.Helper()
	file, diags := syntax.ParseFile(source)
	if diags.HasErrors() {
		t.Fatalf("parse errors:\n%s", diags.FormatAll(source))
	}
	return file
}

func hasCode(diags diag.List, code diag.Code) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestEvaluate(t *testing.T) {
	file := parse(t, effectSource)
	tests := []struct {
		name    string
		params  Params
		mixins  []string
		normals []string
		macros  []Macro
	}{
		{
			name:    "defaults",
			mixins:  []string{"Lighting", "Extra"},
			normals: []string{"NormalFromTexture"},
			macros:  []Macro{{"LIGHT_COUNT", "2"}, {"ROUGH", "0.0"}},
		},
		{
			name:    "no normal map",
			params:  Params{"MaterialKeys.UseNormalMap": Bool(false)},
			mixins:  []string{"Lighting"},
			normals: []string{"NormalFromMesh"},
			macros:  []Macro{{"LIGHT_COUNT", "2"}, {"ROUGH", "0.0"}},
		},
		{
			name:    "single light",
			params:  Params{"MaterialKeys.LightCount": Int(1), "MaterialKeys.Roughness": Float(0.5)},
			mixins:  []string{"Lighting", "Extra"},
			normals: []string{"NormalFromMesh"},
			macros:  []Macro{{"LIGHT_COUNT", "1"}, {"ROUGH", "0.5"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, diags := Evaluate(file, "LitEffect", tt.params)
			if diags.HasErrors() {
				t.Fatalf("unexpected errors: %v", diags)
			}
			if !reflect.DeepEqual(r.Mixins, tt.mixins) {
				t.Errorf("mixins = %v, want %v", r.Mixins, tt.mixins)
			}
			if got := r.Compositions["Normals"]; !reflect.DeepEqual(got, tt.normals) {
				t.Errorf("Normals = %v, want %v", got, tt.normals)
			}
			if !reflect.DeepEqual(r.Macros, tt.macros) {
				t.Errorf("macros = %v, want %v", r.Macros, tt.macros)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		effect string
		code   diag.Code
	}{
		{"unknown effect", `shader A { };`, "Missing", diag.CodeUnknownEffect},
		{"unknown shader", `effect E { mixin Missing; };`, "E", diag.CodeUnknownShader},
		{"unknown params", `effect E { using params Missing; };`, "E", diag.CodeUnknownParams},
		{"unknown parameter", `effect E { if (Missing) mixin A; }; shader A { };`, "E", diag.CodeUnknownParams},
		{"effect cycle", `effect E { mixin F; }; effect F { mixin E; };`, "E", diag.CodeMixinCycle},
		{"unknown child", `effect E { mixin child Missing; };`, "E", diag.CodeUnknownEffect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, diags := Evaluate(parse(t, tt.source), tt.effect, nil)
			if r != nil {
				t.Errorf("expected no result, got %+v", r)
			}
			if !hasCode(diags, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, diags)
			}
		})
	}
}

func TestEvaluateNestedEffect(t *testing.T) {
	file := parse(t, `
shader A { };
shader B { };
partial effect Inner { mixin B; };
effect Outer { mixin A; mixin Inner; mixin child Inner; mixin clone; };
`)
	r, diags := Evaluate(file, "Outer", nil)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(r.Mixins, want) {
		t.Errorf("mixins = %v, want %v", r.Mixins, want)
	}
	if want := []string{"Inner"}; !reflect.DeepEqual(r.Children, want) {
		t.Errorf("children = %v, want %v", r.Children, want)
	}
	if !r.Cloned {
		t.Error("clone not recorded")
	}
}

func methodNames(s *syntax.ShaderDecl) []string {
	var names []string
	for _, m := range s.Members {
		if md, ok := m.(*syntax.MethodDecl); ok {
			names = append(names, md.Name)
		}
	}
	return names
}

func checkLinked(t *testing.T, linked *syntax.ShaderDecl) {
	t.Helper()
	_, diags := sema.Check(&syntax.File{Decls: []syntax.Decl{linked}}, sema.DefaultOptions())
	if diags.HasErrors() {
		t.Fatalf("linked shader does not check: %v\n%s", diags, syntax.Print(linked))
	}
}

func TestLinkOverride(t *testing.T) {
	file := parse(t, `
shader Base
{
    stream float4 Color;
    float4 Shade() { return float4(1, 1, 1, 1); }
    void PSMain() { streams.Color = Shade(); }
};
shader Tint : Base
{
    override float4 Shade() { return base.Shade() * 0.5; }
};
`)
	linked, diags := Link(file, Single("Tint"))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if want := []string{"Shade_Base", "PSMain", "Shade"}; !reflect.DeepEqual(methodNames(linked), want) {
		t.Fatalf("methods = %v, want %v", methodNames(linked), want)
	}
	shade := linked.Members[3].(*syntax.MethodDecl)
	call := shade.Body.Stmts[0].(*syntax.Return).Value.(*syntax.Operation).Left.(*syntax.MethodCall)
	if call.Receiver != nil || call.Name != "Shade_Base" {
		t.Errorf("base call = %s", syntax.Print(call))
	}
	checkLinked(t, linked)

	// The parsed file is left untouched.
	orig := file.Decls[1].(*syntax.ShaderDecl).Members[0].(*syntax.MethodDecl)
	if c := orig.Body.Stmts[0].(*syntax.Return).Value.(*syntax.Operation).Left.(*syntax.MethodCall); c.Receiver == nil {
		t.Error("Link modified the parsed file")
	}
}

func TestLinkOrder(t *testing.T) {
	file := parse(t, `
shader A { float a; };
shader B : A { float b; };
shader C : A { float c; };
shader D : B, C { float d; };
`)
	linked, diags := Link(file, Single("D"))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	var names []string
	for _, m := range linked.Members {
		names = append(names, m.(*syntax.VariableDecl).Name)
	}
	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(names, want) {
		t.Errorf("members = %v, want %v", names, want)
	}
}

func TestLinkComposition(t *testing.T) {
	file := parse(t, `
shader ComputeColor { abstract float4 Compute(); };
shader Red : ComputeColor { override float4 Compute() { return float4(1, 0, 0, 1); } };
shader Material
{
    compose ComputeColor Albedo;
    float4 Shade() { return Albedo.Compute(); }
};
effect M { mixin Material; mixin compose Albedo = Red; };
`)
	r, diags := Evaluate(file, "M", nil)
	if diags.HasErrors() {
		t.Fatalf("evaluate: %v", diags)
	}
	linked, diags := Link(file, r)
	if diags.HasErrors() {
		t.Fatalf("link: %v", diags)
	}
	if want := []string{"Shade", "Albedo_Compute"}; !reflect.DeepEqual(methodNames(linked), want) {
		t.Fatalf("methods = %v, want %v", methodNames(linked), want)
	}
	checkLinked(t, linked)
}

func TestLinkErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		mixins []string
		code   diag.Code
	}{
		{"duplicate method", `shader A { void F() { } }; shader B { void F() { } };`, []string{"A", "B"}, diag.CodeDuplicateMethod},
		{"nothing to override", `shader A { override void F() { } };`, []string{"A"}, diag.CodeNothingToOverride},
		{"inheritance cycle", `shader A : B { }; shader B : A { };`, []string{"A"}, diag.CodeMixinCycle},
		{"unknown base", `shader A : Missing { };`, []string{"A"}, diag.CodeUnknownShader},
		{"conflicting streams", `shader A { stream float X; }; shader B { stream int X; };`, []string{"A", "B"}, diag.CodeDuplicateMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Effect: "E", Mixins: tt.mixins}
			linked, diags := Link(parse(t, tt.source), r)
			if linked != nil {
				t.Error("expected no linked shader")
			}
			if !hasCode(diags, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, diags)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		text string
		want Value
	}{
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int(42)},
		{"-3", Int(-3)},
		{"1.5", Float(1.5)},
		{"-0.25f", Float(-0.25)},
		{"NormalFromTexture", String("NormalFromTexture")},
	}
	for _, tt := range tests {
		if got := ParseValue(tt.text); got != tt.want {
			t.Errorf("ParseValue(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}
