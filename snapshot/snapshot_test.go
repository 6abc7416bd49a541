// Package snapshot_test runs the SDSL shaders of testdata/in/ through the
// whole compiler and compares the disassembly with golden files stored in
// testdata/golden/.
//
// Every input starts with directive comments:
//
//	// shader: Lit
//	// stages: vertex, pixel
//	// expect: OpEntryPoint Vertex
//	// reject: OpKill
//
// "expect" and "reject" name text the disassembly must or must not contain;
// they hold whether or not a golden file exists. An input without a golden
// file is still compiled twice and checked for validity, identical output
// and its expectations. To (re)generate golden files:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gogpu/sdsl"
	"github.com/gogpu/sdsl/spirv"
	"github.com/gogpu/sdsl/streams"
)

// shaderFile is an input shader loaded from disk.
type shaderFile struct {
	name   string // base name without extension (e.g., "lit")
	source string
	opts   sdsl.Options
	expect []string
	reject []string
}

func TestSnapshots(t *testing.T) {
	shaders := loadInputShaders(t, "testdata/in")
	if len(shaders) == 0 {
		t.Fatal("no input shaders found in testdata/in/")
	}
	for i := range shaders {
		shader := &shaders[i]
		t.Run(shader.name, func(t *testing.T) {
			first := compile(t, shader)
			if second := compile(t, shader); second != first {
				t.Fatalf("compilation is not deterministic:\n%s", diffStrings(first, second))
			}
			for _, want := range shader.expect {
				if !strings.Contains(first, want) {
					t.Errorf("disassembly lacks %q:\n%s", want, first)
				}
			}
			for _, bad := range shader.reject {
				if strings.Contains(first, bad) {
					t.Errorf("disassembly contains %q:\n%s", bad, first)
				}
			}
			compareGolden(t, filepath.Join("testdata", "golden", shader.name+".spvasm"), first)
		})
	}
}

func loadInputShaders(t *testing.T, dir string) []shaderFile {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read input directory %q: %v", dir, err)
	}
	var shaders []shaderFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sdsl") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("read shader %q: %v", entry.Name(), err)
		}
		s := shaderFile{
			name:   strings.TrimSuffix(entry.Name(), ".sdsl"),
			source: string(data),
			opts:   sdsl.DefaultOptions(),
		}
		if err := directives(&s); err != nil {
			t.Fatalf("%s: %v", entry.Name(), err)
		}
		shaders = append(shaders, s)
	}
	sort.Slice(shaders, func(i, j int) bool {
		return shaders[i].name < shaders[j].name
	})
	return shaders
}

// directives reads the leading "// key: value" comments of s.
func directives(s *shaderFile) error {
	for _, line := range strings.Split(s.source, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "//")
		if !ok {
			return nil
		}
		key, value, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "shader":
			s.opts.Shader = value
		case "effect":
			s.opts.Effect = value
		case "stages":
			for _, name := range strings.Split(value, ",") {
				stage, err := streams.ParseStage(strings.TrimSpace(name))
				if err != nil {
					return err
				}
				s.opts.Stages = append(s.opts.Stages, stage)
			}
		case "define":
			name, v, _ := strings.Cut(value, "=")
			if s.opts.Macros == nil {
				s.opts.Macros = make(map[string]string)
			}
			s.opts.Macros[strings.TrimSpace(name)] = strings.TrimSpace(v)
		case "expect":
			s.expect = append(s.expect, value)
		case "reject":
			s.reject = append(s.reject, value)
		default:
			return fmt.Errorf("unknown directive %q", key)
		}
	}
	return nil
}

// compile runs the shader through the compiler and returns the
// disassembly of the decoded binary.
func compile(t *testing.T, s *shaderFile) string {
	t.Helper()
	r, err := sdsl.CompileWithOptions(s.source, s.opts)
	if err != nil {
		t.Fatalf("compile failed: %v\n%s", err, sdsl.Diagnostics(err).FormatAll(s.source))
	}
	buf, err := spirv.DecodeBytes(r.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if err := spirv.Validate(buf); err != nil {
		t.Fatalf("invalid module: %v", err)
	}
	return spirv.Disassemble(buf)
}

func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			t.Fatalf("write golden file: %v", err)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Logf("no golden file %s; run with UPDATE_GOLDEN=1 to create it", path)
		return
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Git may convert \n to \r\n on Windows checkout.
	want := strings.ReplaceAll(string(expected), "\r\n", "\n")
	if want != actual {
		t.Errorf("output differs from golden %s:\n%s", path, diffStrings(want, actual))
	}
}

// diffStrings shows the first differing line with some context.
func diffStrings(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")
	maxLines := max(len(expectedLines), len(actualLines))
	line := func(lines []string, i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	firstDiff := -1
	for i := range maxLines {
		if line(expectedLines, i) != line(actualLines, i) {
			firstDiff = i
			break
		}
	}
	if firstDiff < 0 {
		return "(no difference found)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "first difference at line %d:\n", firstDiff+1)
	fmt.Fprintf(&sb, "  expected lines: %d\n", len(expectedLines))
	fmt.Fprintf(&sb, "  actual lines:   %d\n\n", len(actualLines))

	const contextLines = 3
	for i := max(firstDiff-contextLines, 0); i < min(firstDiff+contextLines+1, maxLines); i++ {
		e, a := line(expectedLines, i), line(actualLines, i)
		if e == a {
			fmt.Fprintf(&sb, "  %4d   %s\n", i+1, e)
			continue
		}
		fmt.Fprintf(&sb, "  %4d - %s\n", i+1, e)
		fmt.Fprintf(&sb, "  %4d + %s\n", i+1, a)
	}
	return sb.String()
}
