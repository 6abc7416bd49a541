package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/multierr"

	"github.com/gogpu/sdsl/streams"
)

const yamlManifest = `
output: out
concurrency: 2
jobs:
  - name: lit
    source: shaders/lit.sdsl
    effect: LitEffect
    stages: [vertex, ps]
    macros:
      QUALITY: "1"
    params:
      MaterialKeys.UseNormalMap: "true"
    permutations:
      - name: low
      - name: high
        macros:
          QUALITY: "3"
  - name: blit
    source: /abs/blit.sdsl
    shader: Blit
    output: blit.bin
`

const tomlManifest = `
output = "out"
concurrency = 2

[[jobs]]
name = "lit"
source = "shaders/lit.sdsl"
effect = "LitEffect"
stages = ["vertex", "ps"]
macros = { QUALITY = "1" }
params = { "MaterialKeys.UseNormalMap" = "true" }

[[jobs.permutations]]
name = "low"

[[jobs.permutations]]
name = "high"
macros = { QUALITY = "3" }

[[jobs]]
name = "blit"
source = "/abs/blit.sdsl"
shader = "Blit"
output = "blit.bin"
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		file, content string
	}{
		{"build.yaml", yamlManifest},
		{"build.toml", tomlManifest},
	}
	for _, tt := range tests {
		path := write(t, tt.file, tt.content)
		m, err := Load(path)
		if err != nil {
			t.Fatalf("%s: %v", tt.file, err)
		}
		dir := filepath.Dir(path)
		if m.Concurrency != 2 || len(m.Jobs) != 2 || m.Dir != dir {
			t.Errorf("%s: manifest = %+v", tt.file, m)
		}

		units := m.Units()
		if len(units) != 3 {
			t.Fatalf("%s: %d units, want 3", tt.file, len(units))
		}
		low, high, blit := units[0], units[1], units[2]
		if low.Name != "lit.low" || high.Name != "lit.high" {
			t.Errorf("%s: names %s, %s", tt.file, low.Name, high.Name)
		}
		if low.Macros["QUALITY"] != "1" || high.Macros["QUALITY"] != "3" {
			t.Errorf("%s: macros %v, %v", tt.file, low.Macros, high.Macros)
		}
		if high.Params["MaterialKeys.UseNormalMap"] != "true" {
			t.Errorf("%s: params %v", tt.file, high.Params)
		}
		if !reflect.DeepEqual(low.Stages, []streams.Stage{streams.Vertex, streams.Pixel}) {
			t.Errorf("%s: stages %v", tt.file, low.Stages)
		}
		if want := filepath.Join(dir, "shaders", "lit.sdsl"); low.Source != want {
			t.Errorf("%s: source %s, want %s", tt.file, low.Source, want)
		}
		if want := filepath.Join(dir, "out", "lit.high.spv"); high.Output != want {
			t.Errorf("%s: output %s, want %s", tt.file, high.Output, want)
		}
		if blit.Source != "/abs/blit.sdsl" || blit.Shader != "Blit" {
			t.Errorf("%s: blit = %+v", tt.file, blit)
		}
		if want := filepath.Join(dir, "out", "blit.bin"); blit.Output != want {
			t.Errorf("%s: blit output %s, want %s", tt.file, blit.Output, want)
		}
	}
}

func TestValidate(t *testing.T) {
	_, err := Parse([]byte(`
concurrency: -1
jobs:
  - source: a.sdsl
    stages: [vertex, tessellation]
  - name: b
    effect: E
    shader: S
    permutations:
      - name: x
      - name: x
`), YAML)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Parse = %v, want ErrInvalid", err)
	}
	// negative concurrency, missing name, unknown stage, missing source,
	// effect and shader, repeated permutation (twice: also a shared output).
	if n := len(multierr.Errors(err)); n != 7 {
		t.Errorf("got %d problems, want 7:\n%v", n, err)
	}

	if _, err := Parse([]byte(`output: x`), YAML); !errors.Is(err, ErrInvalid) {
		t.Errorf("manifest without jobs: %v", err)
	}
	if _, err := Parse([]byte("jobs = ["), TOML); err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("malformed TOML: %v", err)
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.yml": YAML, "b.YAML": YAML, "c.toml": TOML} {
		if got, err := FormatOf(path); err != nil || got != want {
			t.Errorf("FormatOf(%s) = %v, %v", path, got, err)
		}
	}
	if _, err := FormatOf("build.json"); err == nil {
		t.Error("FormatOf(json) succeeded")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}
