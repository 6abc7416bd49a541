package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInternal marks a compiler defect as opposed to a problem in user input.
var ErrInternal = errors.New("internal compiler error")

// Internalf returns an error wrapping ErrInternal.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Diagnostic is one coded message attached to a source span.
type Diagnostic struct {
	Span     Span
	Code     Code
	Message  string
	Severity Severity
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if !d.Span.Start.IsValid() {
		return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s[%s]: %s", d.Span.Start, d.Severity, d.Code, d.Message)
}

// FormatWithContext returns the diagnostic with the offending source line and
// a caret under the start column.
func (d *Diagnostic) FormatWithContext(source string) string {
	if source == "" || !d.Span.Start.IsValid() {
		return d.Error()
	}

	lines := strings.Split(source, "\n")
	lineNum := d.Span.Start.Line
	if lineNum > len(lines) {
		return d.Error()
	}

	line := lines[lineNum-1]
	col := d.Span.Start.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	width := 1
	if d.Span.End.Line == lineNum && d.Span.End.Column > col {
		width = d.Span.End.Column - col
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]: %s\n", d.Severity, d.Code, d.Message)
	fmt.Fprintf(&sb, "  --> line %d:%d\n", lineNum, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", width))

	return sb.String()
}

// List is an ordered collection of diagnostics.
type List []*Diagnostic

// Error implements the error interface.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// Add appends an error diagnostic.
func (l *List) Add(span Span, code Code, message string) {
	*l = append(*l, &Diagnostic{Span: span, Code: code, Message: message})
}

// Addf appends an error diagnostic with a formatted message.
func (l *List) Addf(span Span, code Code, format string, args ...any) {
	l.Add(span, code, fmt.Sprintf(format, args...))
}

// Warnf appends a warning.
func (l *List) Warnf(span Span, code Code, format string, args ...any) {
	*l = append(*l, &Diagnostic{Span: span, Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Append appends every diagnostic of other.
func (l *List) Append(other List) {
	*l = append(*l, other...)
}

// Len returns the number of diagnostics.
func (l List) Len() int {
	return len(l)
}

// HasErrors reports whether any diagnostic has error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error-severity diagnostics only.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by source position, keeping report order for ties.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Span.Start.Offset < l[j].Span.Start.Offset
	})
}

// Err returns nil when the list has no errors, and the list otherwise.
func (l List) Err() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}

// FormatAll returns all diagnostics formatted with source context.
func (l List) FormatAll(source string) string {
	var sb strings.Builder
	for i, d := range l {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatWithContext(source))
	}
	return sb.String()
}
