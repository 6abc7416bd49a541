package streams

import (
	"reflect"
	"testing"

	"github.com/gogpu/sdsl/spirv"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"vertex", Vertex},
		{"VS", Vertex},
		{"ps", Pixel},
		{"Pixel", Pixel},
		{"geometry", Geometry},
		{"cs", Compute},
	}
	for _, tt := range tests {
		got, err := ParseStage(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseStage(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseStage("fragment"); err == nil {
		t.Error("ParseStage(fragment) succeeded")
	}
}

func TestStageNames(t *testing.T) {
	if Pixel.EntryName() != "PSMain" || Geometry.Prefix() != "GS" {
		t.Errorf("names: %s %s", Pixel.EntryName(), Geometry.Prefix())
	}
	if Pixel.ExecutionModel() != spirv.ExecutionModelFragment {
		t.Errorf("pixel model = %d", Pixel.ExecutionModel())
	}
	if got := ordered([]Stage{Pixel, Vertex, Pixel, Geometry}); !reflect.DeepEqual(got, []Stage{Vertex, Geometry, Pixel}) {
		t.Errorf("ordered = %v", got)
	}
}
