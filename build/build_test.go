package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/multierr"

	"github.com/gogpu/sdsl/manifest"
	"github.com/gogpu/sdsl/spirv"
)

const flat = `
params Keys
{
    bool Bright = false;
};

shader Flat
{
    stream float4 Position : SV_Position;
    stream float4 Color : SV_Target0;
    void VSMain() { streams.Position = float4(0, 0, 0, 1); }
    void PSMain()
    {
#ifdef HALF
        streams.Color = float4(0.5, 0.5, 0.5, 1);
#else
        streams.Color = float4(1, 1, 1, 1);
#endif
    }
};

effect FlatEffect
{
    using params Keys;
    mixin Flat;
};
`

func setup(t *testing.T, manifestText string) *manifest.Manifest {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "flat.sdsl"), []byte(flat), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "build.yaml")
	if err := os.WriteFile(path, []byte(manifestText), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRun(t *testing.T) {
	m := setup(t, `
output: out
concurrency: 2
jobs:
  - name: flat
    source: flat.sdsl
    effect: FlatEffect
    stages: [vertex, pixel]
    params:
      Keys.Bright: "true"
    permutations:
      - name: full
      - name: half
        macros: {HALF: ""}
  - name: vs
    source: flat.sdsl
    shader: Flat
    stages: [vertex]
`)
	var mu sync.Mutex
	var progress []int
	opts := DefaultOptions()
	opts.Progress = func(r Report) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, r.Done)
		if r.Total != 3 {
			t.Errorf("total = %d, want 3", r.Total)
		}
	}
	reports, err := Run(context.Background(), m, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 3 || len(progress) != 3 {
		t.Fatalf("%d reports, %d progress calls", len(reports), len(progress))
	}
	for i, want := range []int{1, 2, 3} {
		if progress[i] != want {
			t.Errorf("progress[%d] = %d, want %d", i, progress[i], want)
		}
	}
	for _, name := range []string{"flat.full.spv", "flat.half.spv", "vs.spv"} {
		data, err := os.ReadFile(filepath.Join(m.Dir, "out", name))
		if err != nil {
			t.Fatal(err)
		}
		buf, err := spirv.DecodeBytes(data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := spirv.Validate(buf); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestRunFailures(t *testing.T) {
	m := setup(t, `
output: out
jobs:
  - name: good
    source: flat.sdsl
    shader: Flat
    stages: [vertex]
  - name: missing
    source: nowhere.sdsl
  - name: compute
    source: flat.sdsl
    shader: Flat
    stages: [compute]
`)
	reports, err := Run(context.Background(), m, DefaultOptions())
	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), err)
	}
	failed := make(map[string]bool)
	for _, e := range errs {
		var ue *UnitError
		if !errors.As(e, &ue) {
			t.Fatalf("error %v is not a UnitError", e)
		}
		failed[ue.Unit] = true
	}
	if !failed["missing"] || !failed["compute"] {
		t.Errorf("failed units = %v", failed)
	}
	if reports[0].Err != nil || reports[0].Size == 0 {
		t.Errorf("good unit report = %+v", reports[0])
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "out", "good.spv")); err != nil {
		t.Error(err)
	}
}

func TestRunCancelled(t *testing.T) {
	m := setup(t, `
jobs:
  - name: a
    source: flat.sdsl
    shader: Flat
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := DefaultOptions()
	opts.DryRun = true
	_, err := Run(ctx, m, opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestRunDryRun(t *testing.T) {
	m := setup(t, `
output: out
jobs:
  - name: a
    source: flat.sdsl
    shader: Flat
    stages: [pixel]
`)
	opts := DefaultOptions()
	opts.DryRun = true
	reports, err := Run(context.Background(), m, opts)
	if err != nil {
		t.Fatal(err)
	}
	if reports[0].Size == 0 {
		t.Error("dry run reported no size")
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "out")); !os.IsNotExist(err) {
		t.Errorf("dry run wrote output: %v", err)
	}
}
