// Command sdslc is the SDSL shader compiler CLI.
//
// Usage:
//
//	sdslc [options] <input.sdsl>
//	sdslc -manifest build.yaml
//
// Examples:
//
//	sdslc shader.sdsl                                  # Check, emit a library module
//	sdslc -stage vs,ps -shader Lit -o lit.spv lit.sdsl # Compile two stages
//	sdslc -effect LitEffect -P Keys.Fog=true lit.sdsl  # Evaluate an effect
//	sdslc -manifest shaders/build.toml                 # Batch build
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gogpu/sdsl"
	"github.com/gogpu/sdsl/build"
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/effect"
	"github.com/gogpu/sdsl/manifest"
	"github.com/gogpu/sdsl/spirv"
	"github.com/gogpu/sdsl/streams"
)

const sdslVersion = "0.1.0-dev"

// pairs collects repeated NAME=VALUE flags.
type pairs map[string]string

func (p pairs) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p pairs) Set(s string) error {
	name, value, _ := strings.Cut(s, "=")
	if name == "" {
		return fmt.Errorf("expected NAME=VALUE, got %q", s)
	}
	p[name] = value
	return nil
}

// stageList collects repeated or comma-separated stages.
type stageList []streams.Stage

func (l *stageList) String() string {
	names := make([]string, len(*l))
	for i, s := range *l {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}

func (l *stageList) Set(s string) error {
	for _, name := range strings.Split(s, ",") {
		stage, err := streams.ParseStage(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		*l = append(*l, stage)
	}
	return nil
}

type compiler struct {
	output       string
	manifestPath string
	effect       string
	shader       string
	diagFormat   string
	debug        bool
	validate     bool
	disassemble  bool
	verbose      bool
	stages       stageList
	macros       pairs
	params       pairs

	log *zap.Logger
}

func (c *compiler) flags(fs *flag.FlagSet) {
	fs.StringVar(&c.output, "o", "", "output file (default: stdout)")
	fs.StringVar(&c.manifestPath, "manifest", "", "build every job of a YAML or TOML manifest")
	fs.StringVar(&c.effect, "effect", "", "effect to evaluate and link")
	fs.StringVar(&c.shader, "shader", "", "shader to link with its bases")
	fs.StringVar(&c.diagFormat, "diag", "text", "diagnostics format: text or json")
	fs.BoolVar(&c.debug, "debug", false, "name locals and temporaries")
	fs.BoolVar(&c.validate, "validate", true, "validate the module after every pass")
	fs.BoolVar(&c.disassemble, "S", false, "write SPIR-V assembly instead of binary")
	fs.BoolVar(&c.verbose, "v", false, "verbose logging")
	fs.Var(&c.stages, "stage", "stages to compile: vertex, geometry, pixel, compute (repeatable, comma-separated)")
	fs.Var(c.macros, "D", "define a macro NAME=VALUE (repeatable)")
	fs.Var(c.params, "P", "set an effect parameter Block.Name=VALUE (repeatable)")
}

func (c *compiler) logger() (*zap.Logger, error) {
	if c.verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func (c *compiler) run(args []string) error {
	fs := flag.NewFlagSet("sdslc", flag.ContinueOnError)
	c.macros, c.params = pairs{}, pairs{}
	c.flags(fs)
	version := fs.Bool("version", false, "print version")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Printf("sdslc version %s\n", sdslVersion)
		return nil
	}
	if c.diagFormat != "text" && c.diagFormat != "json" {
		return fmt.Errorf("unknown diagnostics format %q", c.diagFormat)
	}

	log, err := c.logger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	c.log = log

	if c.manifestPath != "" {
		return c.runManifest()
	}
	if fs.NArg() != 1 {
		usage(fs)
		return errors.New("expected exactly one input file")
	}
	return c.compile(fs.Arg(0))
}

func (c *compiler) compile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	params, err := effect.ParseParams(c.params)
	if err != nil {
		return err
	}
	opts := sdsl.DefaultOptions()
	opts.Effect = c.effect
	opts.Shader = c.shader
	opts.Stages = c.stages
	opts.Macros = c.macros
	opts.Params = params
	opts.Debug = c.debug
	opts.Validate = c.validate
	opts.Logger = c.log

	r, err := sdsl.CompileWithOptions(string(source), opts)
	if err != nil {
		if list := sdsl.Diagnostics(err); len(list) > 0 {
			return c.report(path, string(source), list)
		}
		return err
	}
	if len(r.Warnings) > 0 {
		if err := c.writeDiagnostics(os.Stderr, path, r.Source, r.Warnings); err != nil {
			return err
		}
	}

	data := r.Bytes()
	if c.disassemble {
		data = []byte(spirv.Disassemble(r.Module))
	}
	if c.output == "" {
		if !c.disassemble && term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("refusing to write a binary module to a terminal; use -o or -S")
		}
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Successfully compiled %s to %s (%d bytes)\n", path, c.output, len(data))
	return nil
}

// errReported marks failures whose diagnostics are already printed.
var errReported = errors.New("compilation failed")

func (c *compiler) report(path, source string, list diag.List) error {
	if err := c.writeDiagnostics(os.Stderr, path, source, list); err != nil {
		return err
	}
	return errReported
}

func (c *compiler) writeDiagnostics(w io.Writer, path, source string, list diag.List) error {
	if c.diagFormat == "json" {
		return diag.WriteJSON(w, path, list)
	}
	_, err := fmt.Fprintf(w, "%s:\n%s\n", path, list.FormatAll(source))
	return err
}

func (c *compiler) runManifest() error {
	m, err := manifest.Load(c.manifestPath)
	if err != nil {
		return err
	}
	if c.debug {
		m.Debug = true
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(len(m.Units())), "compiling")
		defer bar.Close()
	}
	opts := build.DefaultOptions()
	opts.Logger = c.log
	opts.Progress = func(r build.Report) {
		if bar != nil {
			_ = bar.Add(1)
		}
		list := append(sdsl.Diagnostics(r.Err), r.Warnings...)
		if len(list) > 0 {
			source, _ := os.ReadFile(r.Unit.Source)
			_ = c.writeDiagnostics(os.Stderr, r.Unit.Source, string(source), list)
		}
	}
	reports, err := build.Run(ctx, m, opts)
	failed := len(multierr.Errors(err))
	fmt.Fprintf(os.Stderr, "\nbuilt %d of %d units\n", len(reports)-failed, len(reports))
	return err
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: sdslc [options] <input.sdsl>\n")
	fmt.Fprintf(os.Stderr, "       sdslc -manifest <build.yaml|build.toml>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  sdslc -stage vs,ps -shader Lit -o lit.spv lit.sdsl  Compile two stages\n")
	fmt.Fprintf(os.Stderr, "  sdslc -S -stage ps -effect LitEffect lit.sdsl       Print assembly\n")
	fmt.Fprintf(os.Stderr, "  sdslc -manifest shaders/build.toml                  Batch build\n")
}

func main() {
	c := &compiler{}
	if err := c.run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if !errors.Is(err, errReported) {
			for _, e := range multierr.Errors(err) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", e)
			}
		}
		os.Exit(1)
	}
}
