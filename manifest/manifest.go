// Package manifest loads build manifests: the effects, permutations and
// stages a batch build compiles.
//
// A manifest is YAML or TOML:
//
//	output: build/shaders
//	concurrency: 4
//	jobs:
//	  - name: lit
//	    source: shaders/lit.sdsl
//	    effect: LitEffect
//	    stages: [vertex, pixel]
//	    params:
//	      MaterialKeys.UseNormalMap: "true"
//	    permutations:
//	      - name: shadows
//	        macros: {SHADOWS: "1"}
package manifest

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/sdsl/streams"
)

// ErrInvalid is wrapped by every manifest validation error.
var ErrInvalid = errors.New("manifest: invalid")

// Format is a manifest encoding.
type Format uint8

// Manifest formats.
const (
	YAML Format = iota
	TOML
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return 0, fmt.Errorf("manifest %s: unknown extension", path)
}

// Manifest describes a batch build.
type Manifest struct {
	// Output is the directory modules are written to.
	Output string `yaml:"output" toml:"output"`
	// Concurrency bounds parallel compilations; 0 uses one per CPU.
	Concurrency int   `yaml:"concurrency" toml:"concurrency"`
	Debug       bool  `yaml:"debug" toml:"debug"`
	Jobs        []Job `yaml:"jobs" toml:"jobs"`

	// Dir is the directory relative paths resolve against.
	Dir string `yaml:"-" toml:"-"`
}

// Job compiles one shader or effect.
type Job struct {
	Name   string `yaml:"name" toml:"name"`
	Source string `yaml:"source" toml:"source"`
	// Effect or Shader selects what to compile; with neither, the source
	// must hold a single shader.
	Effect string            `yaml:"effect" toml:"effect"`
	Shader string            `yaml:"shader" toml:"shader"`
	Stages []string          `yaml:"stages" toml:"stages"`
	Macros map[string]string `yaml:"macros" toml:"macros"`
	Params map[string]string `yaml:"params" toml:"params"`
	// Output overrides the module file name, Name + ".spv" by default.
	Output       string        `yaml:"output" toml:"output"`
	Permutations []Permutation `yaml:"permutations" toml:"permutations"`
}

// Permutation varies the macros and parameters of a job.
type Permutation struct {
	Name   string            `yaml:"name" toml:"name"`
	Macros map[string]string `yaml:"macros" toml:"macros"`
	Params map[string]string `yaml:"params" toml:"params"`
}

// Unit is one compilation: a job with one permutation applied.
type Unit struct {
	Name   string
	Source string
	Effect string
	Shader string
	Stages []streams.Stage
	Macros map[string]string
	Params map[string]string
	Output string
	Debug  bool
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &m)
	case TOML:
		err = toml.Unmarshal(data, &m)
	default:
		err = fmt.Errorf("unknown format %d", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every problem of the manifest.
func (m *Manifest) Validate() error {
	var errs error
	invalid := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if len(m.Jobs) == 0 {
		invalid("no jobs")
	}
	if m.Concurrency < 0 {
		invalid("negative concurrency %d", m.Concurrency)
	}
	outputs := make(map[string]string)
	for i, j := range m.Jobs {
		where := fmt.Sprintf("job %d", i+1)
		if j.Name != "" {
			where = "job " + j.Name
		}
		if j.Name == "" {
			invalid("%s: missing name", where)
		}
		if j.Source == "" {
			invalid("%s: missing source", where)
		}
		if j.Effect != "" && j.Shader != "" {
			invalid("%s: both effect and shader given", where)
		}
		for _, s := range j.Stages {
			if _, err := streams.ParseStage(s); err != nil {
				invalid("%s: %v", where, err)
			}
		}
		seen := make(map[string]bool)
		for _, p := range j.Permutations {
			if p.Name == "" {
				invalid("%s: permutation without name", where)
			}
			if seen[p.Name] {
				invalid("%s: permutation %s repeated", where, p.Name)
			}
			seen[p.Name] = true
		}
		for _, u := range m.expand(j) {
			if prev, ok := outputs[u.Output]; ok {
				invalid("%s and %s both write %s", prev, u.Name, u.Output)
			}
			outputs[u.Output] = u.Name
		}
	}
	return errs
}

// Units expands the jobs into compilation units, one per permutation, in
// manifest order. Paths are resolved against Dir.
func (m *Manifest) Units() []Unit {
	var out []Unit
	for _, j := range m.Jobs {
		out = append(out, m.expand(j)...)
	}
	return out
}

func (m *Manifest) expand(j Job) []Unit {
	base := Unit{
		Name:   j.Name,
		Source: m.path(j.Source),
		Effect: j.Effect,
		Shader: j.Shader,
		Macros: maps.Clone(j.Macros),
		Params: maps.Clone(j.Params),
		Debug:  m.Debug,
	}
	for _, s := range j.Stages {
		if stage, err := streams.ParseStage(s); err == nil {
			base.Stages = append(base.Stages, stage)
		}
	}
	file := j.Output
	if file == "" {
		file = j.Name + ".spv"
	}
	if len(j.Permutations) == 0 {
		base.Output = m.path(filepath.Join(m.Output, file))
		return []Unit{base}
	}

	units := make([]Unit, 0, len(j.Permutations))
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	for _, p := range j.Permutations {
		u := base
		u.Name = j.Name + "." + p.Name
		u.Macros = merge(j.Macros, p.Macros)
		u.Params = merge(j.Params, p.Params)
		u.Output = m.path(filepath.Join(m.Output, stem+"."+p.Name+ext))
		units = append(units, u)
	}
	return units
}

func (m *Manifest) path(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// merge returns base overridden by over.
func merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
