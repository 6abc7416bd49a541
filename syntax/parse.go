package syntax

import (
	"github.com/gogpu/sdsl/diag"
)

// ParseFile parses an SDSL source file.
//
// Parsing does not stop at the first error: a declaration that fails is
// reported and skipped, and parsing resumes at the next one. The returned
// file holds every declaration that parsed.
func ParseFile(source string) (*File, diag.List) {
	s := NewScanner(source)
	var d diag.List
	file := &File{}

	for {
		if !s.SkipTrivia() {
			d.Add(diag.Pos(s.Mark()), diag.CodeUnterminated, "unterminated block comment")
			break
		}
		if s.AtEnd() {
			break
		}
		// Stray separators between declarations.
		if s.Consume(";") {
			continue
		}
		before := len(d)
		start := s.Mark()
		decl, ok := g.decl(s, &d)
		if ok {
			file.Decls = append(file.Decls, decl)
			continue
		}
		if len(d) == before {
			d.Addf(diag.Pos(s.Mark()), diag.CodeExpectedDecl, "expected declaration, found %s", describeNext(s))
		}
		synchronize(s, start)
	}

	file.Span = diag.Span{Start: diag.Position{Offset: 0, Line: 1, Column: 1}, End: s.Mark()}
	d.Sort()
	return file, d
}

// synchronize skips to the start of the next declaration: past the next ';'
// or balanced '}' at top level. It always makes progress.
func synchronize(s *Scanner, start diag.Position) {
	s.SkipTo(';', '}')
	if !s.Consume(";") {
		s.Consume("}")
	}
	if s.Mark().Offset == start.Offset && !s.AtEnd() {
		s.Advance()
	}
}

// ParseExpr parses a single expression. Trailing input is an error.
func ParseExpr(source string) (Expr, diag.List) {
	return parseWhole(source, g.expr, diag.CodeExpectedExpr, "expression")
}

// ParseStatement parses a single method body statement.
func ParseStatement(source string) (Stmt, diag.List) {
	return parseWhole(source, g.stmt, diag.CodeExpectedStmt, "statement")
}

// ParseType parses a type name such as "float4x4" or "Texture2D<float4>".
func ParseType(source string) (*TypeName, diag.List) {
	return parseWhole(source, g.typeName, diag.CodeExpectedType, "type")
}

func parseWhole[T any](source string, p Parser[T], code diag.Code, what string) (T, diag.List) {
	s := NewScanner(source)
	var d diag.List
	v, ok := Expect(p, code, what)(s, &d)
	if ok {
		s.SkipTrivia()
		if !s.AtEnd() {
			d.Addf(diag.Pos(s.Mark()), diag.CodeExpectedToken, "unexpected %s after %s", describeNext(s), what)
		}
	}
	d.Sort()
	return v, d
}
