package streams

import (
	"testing"

	"github.com/gogpu/sdsl/spirv"
)

func resultSet(t *testing.T, buf *spirv.Buffer, fn uint32) map[uint32]bool {
	t.Helper()
	set := make(map[uint32]bool)
	for _, inst := range body(t, buf, fn) {
		if id := inst.Result(); id != 0 {
			set[id] = true
		}
	}
	return set
}

func TestDuplicatorDeterminism(t *testing.T) {
	buf, ctx, _ := emit(t, shaded)
	shade := named(buf, "Shade")[0]
	d := NewDuplicator(ctx)

	original, err := d.Visit(buf, shade, Vertex)
	if err != nil || original != shade {
		t.Fatalf("first Visit = %d, %v; want the original %d", original, err, shade)
	}
	if _, ok := ctx.Snapshots[shade]; !ok {
		t.Fatal("first Visit took no snapshot")
	}
	pixel, err := d.Visit(buf, shade, Pixel)
	if err != nil {
		t.Fatal(err)
	}
	geom, err := d.Visit(buf, shade, Geometry)
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := d.Visit(buf, shade, Pixel); again != pixel {
		t.Errorf("second pixel Visit = %d, want %d", again, pixel)
	}

	sets := []map[uint32]bool{resultSet(t, buf, shade), resultSet(t, buf, pixel), resultSet(t, buf, geom)}
	for i := range sets {
		for j := i + 1; j < len(sets); j++ {
			for id := range sets[i] {
				if sets[j][id] {
					t.Errorf("%%%d shared between functions %d and %d", id, i, j)
				}
			}
		}
		if len(sets[i]) != len(sets[0]) {
			t.Errorf("function %d defines %d ids, original %d", i, len(sets[i]), len(sets[0]))
		}
	}
	if len(ctx.ExtraRoots) != 2 {
		t.Errorf("extra roots = %v", ctx.ExtraRoots)
	}
	if n := len(named(buf, "Shade")); n != 3 {
		t.Errorf("%d functions named Shade, want 3", n)
	}

	// Copies follow the original directly.
	r, _ := buf.Function(shade)
	next := buf.Functions()[r.End]
	if next.Op != spirv.OpFunction || (next.Result() != pixel && next.Result() != geom) {
		t.Errorf("instruction after Shade is %s %d", next.Op, next.Result())
	}
	if err := spirv.Validate(buf); err != nil {
		t.Errorf("Validate after duplication: %v", err)
	}
}

func TestDuplicatorCopiesFromSnapshot(t *testing.T) {
	buf, ctx, _ := emit(t, shaded)
	shade := named(buf, "Shade")[0]
	d := NewDuplicator(ctx)
	if _, err := d.Visit(buf, shade, Vertex); err != nil {
		t.Fatal(err)
	}
	// Mutating the original must not leak into later copies.
	r, _ := buf.Function(shade)
	fnType := buf.Functions()[r.Start].Words[3]
	buf.Functions()[r.Start].Words[3] = 999
	pixel, err := d.Visit(buf, shade, Pixel)
	if err != nil {
		t.Fatal(err)
	}
	if got := body(t, buf, pixel)[0].Words[3]; got != fnType {
		t.Errorf("copy has function type %d, want %d", got, fnType)
	}
	if got, want := len(body(t, buf, pixel)), len(ctx.Snapshots[shade]); got != want {
		t.Errorf("copy has %d instructions, snapshot %d", got, want)
	}
}
