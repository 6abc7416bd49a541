// Package sdsl compiles SDSL shaders and effects to SPIR-V.
//
// Compilation runs the source through the preprocessor and parser, mixes
// and links the selected effect or shader, type-checks and lowers the
// result to three-address code, emits SPIR-V with stream pseudo-
// instructions and finally specializes the module for the requested
// pipeline stages.
//
// Example usage:
//
//	source := `
//	shader Flat
//	{
//	    stream float4 Position : SV_Position;
//	    stream float4 Color : SV_Target0;
//	    void VSMain() { streams.Position = float4(0, 0, 0, 1); }
//	    void PSMain() { streams.Color = float4(1, 1, 1, 1); }
//	};
//	`
//	spirv, err := sdsl.Compile(source, streams.Vertex, streams.Pixel)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Each stage needs an entry method named after its prefix: VSMain, GSMain,
// PSMain or CSMain. Without stages the module is emitted in library mode,
// with stream accesses left unresolved.
package sdsl

import (
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/effect"
	"github.com/gogpu/sdsl/preprocess"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/spirv"
	"github.com/gogpu/sdsl/streams"
	"github.com/gogpu/sdsl/syntax"
	"github.com/gogpu/sdsl/tac"
)

// Options configures compilation.
type Options struct {
	// Effect names the effect to evaluate and link. It takes precedence
	// over Shader.
	Effect string
	// Shader names a single shader to link with its bases. With neither
	// Effect nor Shader the whole file is compiled as one shader.
	Shader string

	// Stages lists the stages to specialize for.
	Stages []streams.Stage

	// Macros are defined before preprocessing. Effect macros override
	// them.
	Macros map[string]string
	// Params are the effect parameter values.
	Params effect.Params

	// SPIRVVersion is the target SPIR-V version (default: 1.3)
	SPIRVVersion spirv.Version

	// Debug names locals and temporaries in the module.
	Debug bool

	// Validate checks the identifier invariant after every pass.
	Validate bool

	Logger *zap.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		SPIRVVersion: spirv.Version1_3,
		Validate:     true,
		Logger:       zap.NewNop(),
	}
}

// Result is a compiled module.
type Result struct {
	Module *spirv.Buffer
	// Entries lists the specialized entry points, in pipeline order.
	Entries []streams.EntryPoint
	// Warnings collects the warnings of every front-end pass.
	Warnings diag.List
	// Source is the preprocessed source the diagnostics refer to.
	Source string
}

// Bytes returns the encoded module.
func (r *Result) Bytes() []byte { return r.Module.Bytes() }

// Compile compiles source to SPIR-V for the given stages using default
// options.
func Compile(source string, stages ...streams.Stage) ([]byte, error) {
	opts := DefaultOptions()
	opts.Stages = stages
	r, err := CompileWithOptions(source, opts)
	if err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}

// CompileWithOptions compiles source with custom options.
//
// The compilation pipeline is:
//  1. Preprocess and parse the source
//  2. Evaluate the effect and link its mixins (if selected)
//  3. Type-check the linked shader
//  4. Lower to three-address code
//  5. Emit SPIR-V and specialize it for the stages
func CompileWithOptions(source string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SPIRVVersion == (spirv.Version{}) {
		opts.SPIRVVersion = spirv.Version1_3
	}
	r := &Result{}

	text, file, err := parse(source, opts.Macros, &r.Warnings)
	if err != nil {
		return nil, err
	}
	r.Source = text

	if linked, err := link(source, file, opts, r); err != nil {
		return nil, err
	} else if linked != nil {
		file = linked
	}

	info, diags := Check(file, log)
	r.Warnings.Append(diags)
	if err := diags.Err(); err != nil {
		return nil, fmt.Errorf("type error: %w", err)
	}

	prog, err := tac.Lower(file, info)
	if err != nil {
		return nil, fmt.Errorf("lowering error: %w", err)
	}

	buf, entries, err := Generate(prog, info, opts)
	if err != nil {
		return nil, err
	}
	r.Module = buf
	r.Entries = entries
	log.Debug("compiled",
		zap.Int("functions", len(prog.Functions)),
		zap.Int("entries", len(entries)),
		zap.Uint32("bound", buf.Bound))
	return r, nil
}

// link selects the shader to compile. It returns nil to compile the file
// as is.
func link(source string, file *syntax.File, opts Options, r *Result) (*syntax.File, error) {
	var res *effect.Result
	switch {
	case opts.Effect != "":
		var diags diag.List
		res, diags = effect.Evaluate(file, opts.Effect, opts.Params)
		r.Warnings.Append(diags)
		if err := diags.Err(); err != nil {
			return nil, fmt.Errorf("effect error: %w", err)
		}
		if len(res.Macros) > 0 {
			macros := maps.Clone(opts.Macros)
			if macros == nil {
				macros = make(map[string]string, len(res.Macros))
			}
			maps.Copy(macros, res.MacroMap())
			text, reparsed, err := parse(source, macros, &r.Warnings)
			if err != nil {
				return nil, err
			}
			r.Source, file = text, reparsed
		}
	case opts.Shader != "":
		res = effect.Single(opts.Shader)
	default:
		return nil, nil
	}

	shader, diags := effect.Link(file, res)
	r.Warnings.Append(diags)
	if err := diags.Err(); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	return &syntax.File{Decls: []syntax.Decl{shader}, Span: file.Span}, nil
}

func parse(source string, macros map[string]string, warnings *diag.List) (string, *syntax.File, error) {
	text, diags := preprocess.Process(source, macros)
	warnings.Append(diags)
	if err := diags.Err(); err != nil {
		return "", nil, fmt.Errorf("preprocess error: %w", err)
	}
	file, err := Parse(text)
	if err != nil {
		return "", nil, err
	}
	return text, file, nil
}

// Parse parses preprocessed SDSL source.
func Parse(source string) (*syntax.File, error) {
	file, diags := syntax.ParseFile(source)
	if err := diags.Err(); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file, nil
}

// Check resolves names and types of file.
func Check(file *syntax.File, log *zap.Logger) (*sema.Info, diag.List) {
	return sema.Check(file, sema.Options{Logger: log})
}

// Lower converts a checked file to three-address code.
func Lower(file *syntax.File, info *sema.Info) (*tac.Program, error) {
	return tac.Lower(file, info)
}

// Generate emits prog into a fresh module and specializes it for
// opts.Stages.
func Generate(prog *tac.Program, info *sema.Info, opts Options) (*spirv.Buffer, []streams.EntryPoint, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx := spirv.NewContext(spirv.NewBuffer(opts.SPIRVVersion))
	buf, err := spirv.Emit(prog, ctx, spirv.Options{
		Version:    opts.SPIRVVersion,
		Debug:      opts.Debug,
		Validation: opts.Validate,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("SPIR-V generation error: %w", err)
	}
	entries, err := streams.Specialize(buf, ctx, info, opts.Stages, streams.Options{
		Validation: opts.Validate,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("specialization error: %w", err)
	}
	return buf, entries, nil
}

// Diagnostics extracts the source diagnostics carried by err, if any.
func Diagnostics(err error) diag.List {
	var list diag.List
	if errors.As(err, &list) {
		return list
	}
	var d *diag.Diagnostic
	if errors.As(err, &d) {
		return diag.List{d}
	}
	return nil
}
