package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/sdsl/streams"
)

const flat = `
shader Flat
{
    stream float4 Position : SV_Position;
    void VSMain() { streams.Position = float4(0, 0, 0, 1); }
};
`

func TestFlagValues(t *testing.T) {
	var stages stageList
	if err := stages.Set("vs, pixel"); err != nil {
		t.Fatal(err)
	}
	if err := stages.Set("compute"); err != nil {
		t.Fatal(err)
	}
	if len(stages) != 3 || stages[0] != streams.Vertex || stages[2] != streams.Compute {
		t.Errorf("stages = %v", stages)
	}
	if err := stages.Set("hs,tessellation"); err == nil {
		t.Error("unknown stage accepted")
	}

	p := pairs{}
	for _, s := range []string{"A=1", "B", "C=x=y"} {
		if err := p.Set(s); err != nil {
			t.Fatal(err)
		}
	}
	if p["A"] != "1" || p["B"] != "" || p["C"] != "x=y" {
		t.Errorf("pairs = %v", p)
	}
	if err := p.Set("=1"); err == nil {
		t.Error("empty name accepted")
	}
}

func TestRunAssembly(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "flat.sdsl")
	out := filepath.Join(dir, "flat.spvasm")
	if err := os.WriteFile(in, []byte(flat), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &compiler{}
	if err := c.run([]string{"-S", "-stage", "vs", "-shader", "Flat", "-o", out, in}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "OpEntryPoint Vertex") {
		t.Errorf("assembly has no vertex entry point:\n%s", data)
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	in := filepath.Join(t.TempDir(), "bad.sdsl")
	if err := os.WriteFile(in, []byte("void f() { missing = 1; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &compiler{}
	if err := c.run([]string{"-diag", "json", "-o", os.DevNull, in}); err != errReported {
		t.Errorf("run = %v, want errReported", err)
	}
	if err := c.run([]string{"-diag", "xml", in}); err == nil {
		t.Error("unknown diagnostics format accepted")
	}
}
