// Package preprocess implements the SDSL macro preprocessor.
//
// The preprocessor works line by line. Directive lines and lines in inactive
// conditional regions are replaced by empty lines, so the output has the same
// line structure as the input and spans computed on it point at the original
// source.
//
// Supported directives:
//
//	#define NAME [value]
//	#undef NAME
//	#ifdef NAME / #ifndef NAME
//	#if expr / #elif expr / #else / #endif
//	#pragma ...            (ignored)
//
// Only object-like macros are supported. Conditions use SDSL expression
// syntax over integers, with defined(NAME) and macro substitution applied
// first; undefined identifiers evaluate to 0.
package preprocess

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/sdsl/diag"
)

// Preprocessor holds the macro definitions for one or more sources.
type Preprocessor struct {
	macros map[string]string
	// recent holds the last two identifiers of the source, to find the
	// name defined by "mixin macro".
	recent [2]string
}

// New creates a preprocessor with the given predefined macros.
func New(macros map[string]string) *Preprocessor {
	p := &Preprocessor{macros: make(map[string]string, len(macros))}
	for k, v := range macros {
		p.macros[k] = v
	}
	return p
}

// Process runs the preprocessor over source with the given macros.
func Process(source string, macros map[string]string) (string, diag.List) {
	return New(macros).Process(source)
}

// Define adds or replaces a macro.
func (p *Preprocessor) Define(name, value string) {
	p.macros[name] = value
}

// Undefine removes a macro.
func (p *Preprocessor) Undefine(name string) {
	delete(p.macros, name)
}

// Defined reports whether name is a macro.
func (p *Preprocessor) Defined(name string) bool {
	_, ok := p.macros[name]
	return ok
}

// Macros returns the macro names in sorted order.
func (p *Preprocessor) Macros() []string {
	names := make([]string, 0, len(p.macros))
	for name := range p.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// frame is one level of #if nesting.
type frame struct {
	// outer is whether the enclosing region is active.
	outer bool
	// active is whether the current branch is emitted.
	active bool
	// taken is whether some branch of this #if was already active.
	taken   bool
	elseAt  bool
	openPos diag.Position
}

// Process preprocesses source. Definitions made by #define stay in p after
// the call.
func (p *Preprocessor) Process(source string) (string, diag.List) {
	var d diag.List
	var stack []frame
	p.recent = [2]string{}
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	lines := strings.Split(source, "\n")
	out := make([]string, len(lines))
	offset := 0
	inComment := false

	for i, line := range lines {
		lineStart := diag.Position{Offset: offset, Line: i + 1, Column: 1}
		offset += len(line) + 1

		trimmed := strings.TrimSpace(line)
		if !inComment && strings.HasPrefix(trimmed, "#") {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			pos := lineStart
			pos.Offset += indent
			pos.Column += indent
			name, rest := splitDirective(trimmed[1:])
			span := diag.Span{Start: pos, End: diag.Position{Offset: lineStart.Offset + len(line), Line: i + 1, Column: len(line) + 1}}

			switch name {
			case "define":
				if !active() {
					break
				}
				p.define(rest, span, &d)
			case "undef":
				if active() {
					macro, _ := splitDirective(rest)
					if macro == "" {
						d.Add(span, diag.CodeBadCondition, "#undef requires a macro name")
						break
					}
					delete(p.macros, macro)
				}
			case "ifdef", "ifndef":
				macro, _ := splitDirective(rest)
				if macro == "" {
					d.Addf(span, diag.CodeBadCondition, "#%s requires a macro name", name)
				}
				cond := p.Defined(macro) == (name == "ifdef")
				outer := active()
				stack = append(stack, frame{outer: outer, active: outer && cond, taken: cond, openPos: pos})
			case "if":
				outer := active()
				cond := false
				if outer {
					cond = p.evalCondition(rest, span, &d)
				}
				stack = append(stack, frame{outer: outer, active: outer && cond, taken: cond, openPos: pos})
			case "elif":
				if len(stack) == 0 {
					d.Add(span, diag.CodeUnbalancedIf, "#elif without #if")
					break
				}
				f := &stack[len(stack)-1]
				if f.elseAt {
					d.Add(span, diag.CodeUnbalancedIf, "#elif after #else")
				}
				cond := false
				if f.outer && !f.taken {
					cond = p.evalCondition(rest, span, &d)
				}
				f.active = f.outer && !f.taken && cond
				f.taken = f.taken || cond
			case "else":
				if len(stack) == 0 {
					d.Add(span, diag.CodeUnbalancedIf, "#else without #if")
					break
				}
				f := &stack[len(stack)-1]
				if f.elseAt {
					d.Add(span, diag.CodeUnbalancedIf, "duplicate #else")
				}
				f.elseAt = true
				f.active = f.outer && !f.taken
				f.taken = true
			case "endif":
				if len(stack) == 0 {
					d.Add(span, diag.CodeUnbalancedIf, "#endif without #if")
					break
				}
				stack = stack[:len(stack)-1]
			case "pragma":
			default:
				if active() {
					d.Addf(span, diag.CodeUnknownDirective, "unknown directive #%s", name)
				}
			}
			continue
		}

		if !active() {
			inComment = commentState(line, inComment)
			continue
		}
		out[i], inComment = p.substitute(line, inComment)
	}

	for _, f := range stack {
		d.Add(diag.Pos(f.openPos), diag.CodeUnbalancedIf, "unterminated conditional directive")
	}
	return strings.Join(out, "\n"), d
}

func (p *Preprocessor) define(rest string, span diag.Span, d *diag.List) {
	name, value := splitDirective(rest)
	if name == "" {
		d.Add(span, diag.CodeBadCondition, "#define requires a macro name")
		return
	}
	if strings.HasPrefix(value, "(") && strings.HasPrefix(rest[len(name):], "(") {
		d.Addf(span, diag.CodeUnknownDirective, "function-like macro %s is not supported", name)
		return
	}
	if old, ok := p.macros[name]; ok && old != value {
		d.Warnf(span, diag.CodeMacroRedefined, "macro %s redefined", name)
	}
	p.macros[name] = value
}

// splitDirective splits "name rest" at the first run of blanks.
func splitDirective(s string) (string, string) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && isIdentPart(s[end]) {
		end++
	}
	return s[:end], strings.TrimSpace(s[end:])
}

// substitute expands macros in one source line. Comments are left alone.
func (p *Preprocessor) substitute(line string, inComment bool) (string, bool) {
	if len(p.macros) == 0 {
		return line, commentState(line, inComment)
	}
	var sb strings.Builder
	i := 0
	for i < len(line) {
		switch {
		case inComment:
			end := strings.Index(line[i:], "*/")
			if end < 0 {
				sb.WriteString(line[i:])
				return sb.String(), true
			}
			sb.WriteString(line[i : i+end+2])
			i += end + 2
			inComment = false
		case strings.HasPrefix(line[i:], "//"):
			sb.WriteString(line[i:])
			return sb.String(), false
		case strings.HasPrefix(line[i:], "/*"):
			sb.WriteString("/*")
			i += 2
			inComment = true
		case isIdentStart(line[i]):
			j := i
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			word := line[i:j]
			if p.recent == [2]string{"mixin", "macro"} {
				// The macro an effect defines keeps its name.
				sb.WriteString(word)
			} else {
				sb.WriteString(p.expand(word, nil))
			}
			p.recent = [2]string{p.recent[1], word}
			i = j
		case line[i] >= '0' && line[i] <= '9':
			// Numbers with suffixes such as 1.0f must not expand "f".
			j := i
			for j < len(line) && (isIdentPart(line[j]) || line[j] == '.') {
				j++
			}
			sb.WriteString(line[i:j])
			p.recent = [2]string{}
			i = j
		default:
			if line[i] != ' ' && line[i] != '\t' {
				p.recent = [2]string{}
			}
			sb.WriteByte(line[i])
			i++
		}
	}
	return sb.String(), inComment
}

// expand returns the full expansion of an identifier. A macro never expands
// inside its own expansion.
func (p *Preprocessor) expand(word string, active []string) string {
	value, ok := p.macros[word]
	if !ok {
		return word
	}
	for _, a := range active {
		if a == word {
			return word
		}
	}
	active = append(active, word)
	var sb strings.Builder
	i := 0
	for i < len(value) {
		if isIdentStart(value[i]) {
			j := i
			for j < len(value) && isIdentPart(value[j]) {
				j++
			}
			sb.WriteString(p.expand(value[i:j], active))
			i = j
			continue
		}
		sb.WriteByte(value[i])
		i++
	}
	return sb.String()
}

// commentState returns whether a block comment is open at the end of line.
func commentState(line string, inComment bool) bool {
	for i := 0; i < len(line); i++ {
		if inComment {
			if strings.HasPrefix(line[i:], "*/") {
				inComment = false
				i++
			}
			continue
		}
		if strings.HasPrefix(line[i:], "//") {
			return false
		}
		if strings.HasPrefix(line[i:], "/*") {
			inComment = true
			i++
		}
	}
	return inComment
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *Preprocessor) String() string {
	var sb strings.Builder
	for _, name := range p.Macros() {
		fmt.Fprintf(&sb, "#define %s %s\n", name, p.macros[name])
	}
	return sb.String()
}
