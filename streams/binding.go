package streams

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/spirv"
)

var (
	// ErrNoEntry is returned when a requested stage has no entry method.
	ErrNoEntry = errors.New("streams: stage has no entry method")
	// ErrStage is returned for stages the specializer cannot produce.
	ErrStage = errors.New("streams: unsupported stage")
)

// Field is the binding of one stream member in one stage.
type Field struct {
	Name     string
	Type     *sema.SymbolType
	Semantic string

	Read    bool
	Written bool
	// InputBound fields are loaded from the stage input; OutputBound fields
	// are stored to the stage output.
	InputBound  bool
	OutputBound bool

	// StreamIndex, InputIndex and OutputIndex are the member indices in
	// the stage Streams, Input and Output structs, or -1.
	StreamIndex int
	InputIndex  int
	OutputIndex int

	// Location is the interface location of non built-in fields, or -1.
	Location int
}

// Binding describes how the stream members map onto one stage.
type Binding struct {
	Stage Stage
	// Fields lists every declared stream member in declaration order.
	Fields []Field
	// EmitsVertex is set when the stage emits vertices explicitly.
	EmitsVertex bool
}

// Field returns the binding of a stream member by name.
func (b *Binding) Field(name string) *Field {
	for i := range b.Fields {
		if b.Fields[i].Name == name {
			return &b.Fields[i]
		}
	}
	return nil
}

// Streams returns the fields of the stage Streams struct in member order.
func (b *Binding) Streams() []*Field {
	return b.filter(func(f *Field) bool { return f.StreamIndex >= 0 })
}

// Inputs returns the input-bound fields in member order.
func (b *Binding) Inputs() []*Field { return b.filter(func(f *Field) bool { return f.InputBound }) }

// Outputs returns the output-bound fields in member order.
func (b *Binding) Outputs() []*Field { return b.filter(func(f *Field) bool { return f.OutputBound }) }

func (b *Binding) filter(keep func(*Field) bool) []*Field {
	var out []*Field
	for i := range b.Fields {
		if keep(&b.Fields[i]) {
			out = append(out, &b.Fields[i])
		}
	}
	return out
}

// Analyze computes the stream bindings of the requested stages. A member is
// input-bound when the stage reads it and either the stage starts the
// pipeline, the previous stage outputs it, or its semantic is a built-in
// input of the stage. A member is output-bound when the stage writes it and
// either the next stage reads it or its semantic is a built-in or render
// target output of the stage.
func Analyze(info *sema.Info, stages []Stage) (map[Stage]*Binding, error) {
	stages = ordered(stages)
	bindings := make(map[Stage]*Binding, len(stages))
	for _, s := range stages {
		if s == Hull || s == Domain {
			return nil, fmt.Errorf("%w: %s", ErrStage, s)
		}
		entry := info.Method(s.EntryName())
		if entry == nil {
			return nil, fmt.Errorf("%w: %s needs %s", ErrNoEntry, s, s.EntryName())
		}
		b := &Binding{Stage: s}
		for _, f := range info.Streams.Fields {
			b.Fields = append(b.Fields, Field{
				Name: f.Name, Type: f.Type, Semantic: f.Semantic,
				StreamIndex: -1, InputIndex: -1, OutputIndex: -1, Location: -1,
			})
		}
		for _, m := range reachable(entry) {
			for _, name := range m.Reads {
				if f := b.Field(name); f != nil {
					f.Read = true
				}
			}
			for _, name := range m.Writes {
				if f := b.Field(name); f != nil {
					f.Written = true
				}
			}
			b.EmitsVertex = b.EmitsVertex || m.EmitsVertex
		}
		bindings[s] = b
	}

	var graphics []Stage
	for _, s := range stages {
		if s.Graphics() {
			graphics = append(graphics, s)
		}
	}
	for _, s := range stages {
		b := bindings[s]
		var prev, next *Binding
		if i := indexOf(graphics, s); i >= 0 {
			if i > 0 {
				prev = bindings[graphics[i-1]]
			}
			if i+1 < len(graphics) {
				next = bindings[graphics[i+1]]
			}
		}
		for i := range b.Fields {
			f := &b.Fields[i]
			_, builtinIn := builtin(f.Semantic, s, false)
			_, builtinOut := builtin(f.Semantic, s, true)
			_, target := renderTarget(f.Semantic)
			varying := !isSystemValue(f.Semantic) && s.Graphics()
			f.InputBound = f.Read && (builtinIn || varying && (prev == nil || prev.Fields[i].OutputBound))
			f.OutputBound = f.Written && (builtinOut || s == Pixel && target || varying && next != nil && next.Fields[i].Read)
		}
	}

	for _, b := range bindings {
		var streams, inputs, outputs int
		for i := range b.Fields {
			f := &b.Fields[i]
			if f.Read || f.Written {
				f.StreamIndex = streams
				streams++
			}
			if f.InputBound {
				f.InputIndex = inputs
				inputs++
			}
			if f.OutputBound {
				f.OutputIndex = outputs
				outputs++
			}
		}
	}
	assignLocations(info.Streams.Fields, bindings)
	return bindings, nil
}

// assignLocations numbers the non built-in members by their ordinal among
// such members, so that adjacent stages agree without negotiation. Render
// targets use their index.
func assignLocations(fields []sema.Field, bindings map[Stage]*Binding) {
	loc := 0
	for i, sf := range fields {
		n, target := renderTarget(sf.Semantic)
		system := isSystemValue(sf.Semantic)
		for _, b := range bindings {
			f := &b.Fields[i]
			switch {
			case b.Stage == Pixel && target && f.OutputBound:
				f.Location = n
			case !system:
				f.Location = loc
			}
		}
		if !system {
			loc++
		}
	}
}

// reachable returns entry and every method it calls, transitively.
func reachable(entry *sema.Method) []*sema.Method {
	seen := map[*sema.Method]bool{entry: true}
	list := []*sema.Method{entry}
	for i := 0; i < len(list); i++ {
		for _, c := range list[i].Calls {
			if !seen[c] {
				seen[c] = true
				list = append(list, c)
			}
		}
	}
	return list
}

func indexOf(list []Stage, s Stage) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func isSystemValue(semantic string) bool {
	return strings.HasPrefix(strings.ToUpper(semantic), "SV_")
}

// renderTarget parses SV_Target<n>.
func renderTarget(semantic string) (int, bool) {
	upper := strings.ToUpper(semantic)
	if !strings.HasPrefix(upper, "SV_TARGET") {
		return 0, false
	}
	digits := upper[len("SV_TARGET"):]
	if digits == "" {
		return 0, true
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > 7 {
		return 0, false
	}
	return n, true
}

// builtin maps a system-value semantic to the built-in variable that
// carries it in the given direction of a stage.
func builtin(semantic string, s Stage, output bool) (spirv.BuiltIn, bool) {
	switch strings.ToUpper(semantic) {
	case "SV_POSITION":
		switch {
		case output && (s == Vertex || s == Geometry):
			return spirv.BuiltInPosition, true
		case !output && s == Geometry:
			return spirv.BuiltInPosition, true
		case !output && s == Pixel:
			return spirv.BuiltInFragCoord, true
		}
	case "SV_VERTEXID":
		return spirv.BuiltInVertexIndex, !output && s == Vertex
	case "SV_INSTANCEID":
		return spirv.BuiltInInstanceIndex, !output && s == Vertex
	case "SV_PRIMITIVEID":
		return spirv.BuiltInPrimitiveID, !output && (s == Geometry || s == Pixel)
	case "SV_ISFRONTFACE":
		return spirv.BuiltInFrontFacing, !output && s == Pixel
	case "SV_SAMPLEINDEX":
		return spirv.BuiltInSampleID, !output && s == Pixel
	case "SV_DEPTH":
		return spirv.BuiltInFragDepth, output && s == Pixel
	case "SV_DISPATCHTHREADID":
		return spirv.BuiltInGlobalInvocationID, !output && s == Compute
	case "SV_GROUPTHREADID":
		return spirv.BuiltInLocalInvocationID, !output && s == Compute
	case "SV_GROUPID":
		return spirv.BuiltInWorkgroupID, !output && s == Compute
	case "SV_GROUPINDEX":
		return spirv.BuiltInLocalInvocationIndex, !output && s == Compute
	}
	return 0, false
}
