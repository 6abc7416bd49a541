package sdsl

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/sdsl/effect"
	"github.com/gogpu/sdsl/spirv"
	"github.com/gogpu/sdsl/streams"
)

const litSource = `
params Keys
{
    bool Fog = false;
    int Lights = 1;
};

shader Base
{
    stream float4 Position : SV_Position;
    stream float4 Color : SV_Target0;
    float4 Tint() { return float4(1, 1, 1, 1); }
    void VSMain() { streams.Position = float4(0, 0, 0, 1); }
    void PSMain() { streams.Color = Tint(); }
};

shader Fogged : Base
{
    override float4 Tint()
    {
#if LIGHTS > 1
        return base.Tint() * 0.25;
#else
        return base.Tint() * 0.5;
#endif
    }
};

effect Lit
{
    using params Keys;
    mixin Base;
    if (Keys.Fog)
        mixin Fogged;
    mixin macro LIGHTS = Keys.Lights;
};
`

func decode(t *testing.T, data []byte) *spirv.Buffer {
	t.Helper()
	buf, err := spirv.DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if err := spirv.Validate(buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return buf
}

func count(buf *spirv.Buffer, op spirv.OpCode) int {
	n := 0
	for _, sec := range buf.Sections {
		for _, inst := range sec {
			if inst.Op == op {
				n++
			}
		}
	}
	return n
}

// hasFloat reports whether buf defines the 32-bit float constant f.
func hasFloat(buf *spirv.Buffer, f float32) bool {
	for _, inst := range buf.Sections[spirv.SectionGlobal] {
		if inst.Op == spirv.OpConstant && len(inst.Words) == 3 && inst.Words[2] == math.Float32bits(f) {
			return true
		}
	}
	return false
}

func hasName(buf *spirv.Buffer, name string) bool {
	for _, inst := range buf.Sections[spirv.SectionDebug] {
		if inst.Op != spirv.OpName {
			continue
		}
		if s, _ := spirv.DecodeString(inst.Words[1:]); s == name {
			return true
		}
	}
	return false
}

func TestCompileLibrary(t *testing.T) {
	data, err := Compile(`float4 main() { float3 a = float3(1, 2, 3); return float4(a, 1); }`)
	if err != nil {
		t.Fatal(err)
	}
	buf := decode(t, data)
	if n := count(buf, spirv.OpConstantComposite); n != 2 {
		t.Errorf("%d constant composites, want 2", n)
	}
	if count(buf, spirv.OpEntryPoint) != 0 {
		t.Error("library module has entry points")
	}
}

func TestCompileStages(t *testing.T) {
	source := `
shader Flat
{
    stream float4 Position : SV_Position;
    stream float4 Color : SV_Target0;
    void VSMain() { streams.Position = float4(0, 0, 0, 1); }
    void PSMain() { streams.Color = float4(1, 1, 1, 1); }
};`
	opts := DefaultOptions()
	opts.Stages = []streams.Stage{streams.Pixel, streams.Vertex}
	r, err := CompileWithOptions(source, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Entries) != 2 || r.Entries[0].Name != "VSMain" || r.Entries[1].Name != "PSMain" {
		t.Fatalf("entries = %+v", r.Entries)
	}
	buf := decode(t, r.Bytes())
	if n := count(buf, spirv.OpEntryPoint); n != 2 {
		t.Errorf("%d entry points, want 2", n)
	}
	if n := count(buf, spirv.OpSDSLStreams) + count(buf, spirv.OpSDSLMemberAccess); n != 0 {
		t.Errorf("%d stream pseudo-instructions left", n)
	}
}

func TestCompileEffect(t *testing.T) {
	tests := []struct {
		name     string
		params   effect.Params
		fogged   bool
		constant float32
	}{
		{"defaults", nil, false, 0},
		{"fog", effect.Params{"Keys.Fog": effect.Bool(true)}, true, 0.5},
		{"fog with lights", effect.Params{"Keys.Fog": effect.Bool(true), "Keys.Lights": effect.Int(3)}, true, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Effect = "Lit"
			opts.Params = tt.params
			opts.Stages = []streams.Stage{streams.Vertex, streams.Pixel}
			r, err := CompileWithOptions(litSource, opts)
			if err != nil {
				t.Fatalf("%v\n%s", err, Diagnostics(err).FormatAll(litSource))
			}
			buf := decode(t, r.Bytes())
			if got := hasName(buf, "Tint_Base"); got != tt.fogged {
				t.Errorf("base Tint linked = %v, want %v", got, tt.fogged)
			}
			if tt.constant != 0 && !hasFloat(buf, tt.constant) {
				t.Errorf("constant %v missing", tt.constant)
			}
			if tt.constant == 0.25 && hasFloat(buf, 0.5) {
				t.Error("LIGHTS macro did not select the branch")
			}
		})
	}
}

func TestCompileEffectMacroSelectsCode(t *testing.T) {
	source := `
shader S
{
    stream float4 Position : SV_Position;
    void VSMain()
    {
#if MODE == 2
        streams.Position = float4(0, 0, 0, 5);
#else
        streams.Position = float4(0, 0, 0, 9);
#endif
    }
};
effect E { mixin S; mixin macro MODE = 2; };
`
	opts := DefaultOptions()
	opts.Effect = "E"
	opts.Stages = []streams.Stage{streams.Vertex}
	// A caller macro of the same name is overridden, not substituted into
	// the effect.
	opts.Macros = map[string]string{"MODE": "7"}
	r, err := CompileWithOptions(source, opts)
	if err != nil {
		t.Fatalf("%v\n%s", err, Diagnostics(err).FormatAll(source))
	}
	buf := decode(t, r.Bytes())
	if !hasFloat(buf, 5) || hasFloat(buf, 9) {
		t.Error("MODE branch not selected")
	}
}

func TestCompileShaderWithMacros(t *testing.T) {
	source := `
shader Flip
{
    stream float4 Position : SV_Position;
    void VSMain()
    {
#ifdef FLIP
        streams.Position = float4(0, 0, 0, 3);
#else
        streams.Position = float4(0, 0, 0, 7);
#endif
    }
};`
	opts := DefaultOptions()
	opts.Shader = "Flip"
	opts.Stages = []streams.Stage{streams.Vertex}
	opts.Macros = map[string]string{"FLIP": ""}
	r, err := CompileWithOptions(source, opts)
	if err != nil {
		t.Fatal(err)
	}
	buf := decode(t, r.Bytes())
	if !hasFloat(buf, 3) || hasFloat(buf, 7) {
		t.Error("FLIP branch not selected")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   func(*Options)
		diags  bool
		target error
	}{
		{name: "parse", source: "shader A { void f( };", diags: true},
		{name: "preprocess", source: "#if\n#endif", diags: true},
		{name: "type", source: "void f() { missing = 1; }", diags: true},
		{name: "unknown effect", source: "shader A { };", opts: func(o *Options) { o.Effect = "Nope" }, diags: true},
		{
			name:   "missing entry",
			source: "shader A { stream float4 P : SV_Position; void VSMain() { streams.P = float4(0, 0, 0, 1); } };",
			opts:   func(o *Options) { o.Stages = []streams.Stage{streams.Pixel} },
			target: streams.ErrNoEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := CompileWithOptions(tt.source, opts)
			if err == nil {
				t.Fatal("CompileWithOptions succeeded")
			}
			if got := len(Diagnostics(err)) > 0; got != tt.diags {
				t.Errorf("diagnostics carried = %v, want %v: %v", got, tt.diags, err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}
