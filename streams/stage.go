package streams

import (
	"fmt"
	"strings"

	"github.com/gogpu/sdsl/spirv"
)

// Stage is a pipeline stage.
type Stage uint8

// Stages in pipeline order.
const (
	Vertex Stage = iota
	Hull
	Domain
	Geometry
	Pixel
	Compute
)

// AllStages lists every stage in pipeline order.
var AllStages = []Stage{Vertex, Hull, Domain, Geometry, Pixel, Compute}

var stageInfo = [...]struct {
	name, prefix string
	model        spirv.ExecutionModel
}{
	Vertex:   {"vertex", "VS", spirv.ExecutionModelVertex},
	Hull:     {"hull", "HS", spirv.ExecutionModelTessellationControl},
	Domain:   {"domain", "DS", spirv.ExecutionModelTessellationEvaluation},
	Geometry: {"geometry", "GS", spirv.ExecutionModelGeometry},
	Pixel:    {"pixel", "PS", spirv.ExecutionModelFragment},
	Compute:  {"compute", "CS", spirv.ExecutionModelGLCompute},
}

func (s Stage) String() string {
	if int(s) < len(stageInfo) {
		return stageInfo[s].name
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Prefix is the two letter stage prefix, such as "VS".
func (s Stage) Prefix() string { return stageInfo[s].prefix }

// EntryName is the name of the shader method that runs the stage.
func (s Stage) EntryName() string { return stageInfo[s].prefix + "Main" }

// ExecutionModel returns the SPIR-V execution model of the stage.
func (s Stage) ExecutionModel() spirv.ExecutionModel { return stageInfo[s].model }

// Graphics reports whether the stage belongs to the graphics pipeline.
func (s Stage) Graphics() bool { return s != Compute }

// ParseStage accepts a stage name ("vertex") or prefix ("vs"), in any case.
func ParseStage(name string) (Stage, error) {
	lower := strings.ToLower(name)
	for i, info := range stageInfo {
		if lower == info.name || lower == strings.ToLower(info.prefix) {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// ordered returns the distinct stages of list in pipeline order.
func ordered(list []Stage) []Stage {
	var seen [len(stageInfo)]bool
	for _, s := range list {
		if int(s) < len(seen) {
			seen[s] = true
		}
	}
	var out []Stage
	for _, s := range AllStages {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}
