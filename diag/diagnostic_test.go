package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func span(line, col, off, length int) Span {
	return Span{
		Start: Position{Offset: off, Line: line, Column: col},
		End:   Position{Offset: off + length, Line: line, Column: col + length},
	}
}

func TestDiagnosticError(t *testing.T) {
	d := &Diagnostic{Span: span(3, 7, 20, 2), Code: CodeUndeclared, Message: "undeclared identifier 'x'"}
	want := "3:7: error[T0001]: undeclared identifier 'x'"
	if got := d.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noPos := &Diagnostic{Code: CodeTypeMismatch, Message: "boom"}
	if got := noPos.Error(); got != "error[T0004]: boom" {
		t.Errorf("Error() without position = %q", got)
	}
}

func TestFormatWithContext(t *testing.T) {
	source := "float a = 1;\nfloat b = c;\n"
	d := &Diagnostic{Span: span(2, 11, 23, 1), Code: CodeUndeclared, Message: "undeclared identifier 'c'"}

	out := d.FormatWithContext(source)
	if !strings.Contains(out, "  2| float b = c;") {
		t.Errorf("missing source line in:\n%s", out)
	}
	if !strings.Contains(out, "          ^") {
		t.Errorf("caret not under column 11 in:\n%s", out)
	}
}

func TestListAccumulates(t *testing.T) {
	var l List
	if l.HasErrors() || l.Err() != nil {
		t.Fatal("empty list must not report errors")
	}

	l.Warnf(span(1, 1, 0, 1), CodeUnsupportedFeature, "just a warning")
	if l.HasErrors() {
		t.Error("warnings alone are not errors")
	}

	l.Addf(span(4, 1, 40, 1), CodeRedeclared, "redeclaration of %q", "a")
	l.Addf(span(2, 1, 10, 1), CodeUndeclared, "undeclared %q", "b")
	if !l.HasErrors() || l.Len() != 3 {
		t.Fatalf("expected 3 diagnostics with errors, got %d", l.Len())
	}
	if got := len(l.Errors()); got != 2 {
		t.Errorf("Errors() = %d, want 2", got)
	}

	l.Sort()
	if l[1].Code != CodeUndeclared || l[2].Code != CodeRedeclared {
		t.Errorf("Sort did not order by offset: %v %v", l[1].Code, l[2].Code)
	}
	if !strings.Contains(l.Error(), "and 2 more errors") {
		t.Errorf("unexpected summary %q", l.Error())
	}
}

func TestInternalf(t *testing.T) {
	err := Internalf("stream field %q has no index", "Position")
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("Internalf error does not wrap ErrInternal: %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	var l List
	l.Add(span(1, 5, 4, 3), CodeExpectedToken, "expected ';'")

	var buf bytes.Buffer
	if err := WriteJSON(&buf, "shader.sdsl", l); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"file": "shader.sdsl"`, `"code": "S0004"`, `"column": 5`, `"severity": "error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output missing %s:\n%s", want, out)
		}
	}
}

func TestSpanJoinAndText(t *testing.T) {
	src := "float3 a;"
	a := span(1, 1, 0, 6)
	b := span(1, 8, 7, 1)
	j := a.Join(b)
	if got := j.Text(src); got != "float3 a" {
		t.Errorf("Join text = %q", got)
	}
	if got := (Span{}).Join(b); got != b {
		t.Errorf("Join with zero span = %v", got)
	}
}
