package syntax

import (
	"fmt"
	"strings"

	"github.com/gogpu/sdsl/diag"
)

// Parser matches a prefix of the scanner input.
//
// On success it returns the parsed value and leaves the scanner after the
// match. On failure it must leave the scanner exactly where it was, so callers
// can try an alternative. Parsers report diagnostics only for input they have
// committed to.
type Parser[T any] func(s *Scanner, d *diag.List) (T, bool)

// Pair holds the results of Seq2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple holds the results of Seq3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Alt tries each parser in order and returns the first success.
func Alt[T any](ps ...Parser[T]) Parser[T] {
	return func(s *Scanner, d *diag.List) (T, bool) {
		for _, p := range ps {
			if v, ok := p(s, d); ok {
				return v, true
			}
		}
		var zero T
		return zero, false
	}
}

// Seq2 matches a then b.
func Seq2[A, B any](a Parser[A], b Parser[B]) Parser[Pair[A, B]] {
	return func(s *Scanner, d *diag.List) (Pair[A, B], bool) {
		start := s.Mark()
		va, ok := a(s, d)
		if !ok {
			return Pair[A, B]{}, false
		}
		vb, ok := b(s, d)
		if !ok {
			s.Reset(start)
			return Pair[A, B]{}, false
		}
		return Pair[A, B]{va, vb}, true
	}
}

// Seq3 matches a, b then c.
func Seq3[A, B, C any](a Parser[A], b Parser[B], c Parser[C]) Parser[Triple[A, B, C]] {
	return func(s *Scanner, d *diag.List) (Triple[A, B, C], bool) {
		start := s.Mark()
		va, ok := a(s, d)
		if !ok {
			return Triple[A, B, C]{}, false
		}
		vb, ok := b(s, d)
		if !ok {
			s.Reset(start)
			return Triple[A, B, C]{}, false
		}
		vc, ok := c(s, d)
		if !ok {
			s.Reset(start)
			return Triple[A, B, C]{}, false
		}
		return Triple[A, B, C]{va, vb, vc}, true
	}
}

// FollowedBy matches p then next and keeps p's result.
func FollowedBy[T, U any](p Parser[T], next Parser[U]) Parser[T] {
	return Map(Seq2(p, next), func(v Pair[T, U]) T { return v.First })
}

// Preceded matches prefix then p and keeps p's result.
func Preceded[T, U any](prefix Parser[U], p Parser[T]) Parser[T] {
	return Map(Seq2(prefix, p), func(v Pair[U, T]) T { return v.Second })
}

// Between matches open, p, close and keeps p's result.
func Between[T, O, C any](open Parser[O], p Parser[T], close Parser[C]) Parser[T] {
	return Map(Seq3(open, p, close), func(v Triple[O, T, C]) T { return v.Second })
}

// Opt makes p optional. It always succeeds; the second result reports
// whether p matched.
func Opt[T any](p Parser[T]) Parser[Pair[T, bool]] {
	return func(s *Scanner, d *diag.List) (Pair[T, bool], bool) {
		v, ok := p(s, d)
		return Pair[T, bool]{v, ok}, true
	}
}

// Many matches p zero or more times.
func Many[T any](p Parser[T]) Parser[[]T] {
	return func(s *Scanner, d *diag.List) ([]T, bool) {
		var out []T
		for {
			before := s.Mark()
			v, ok := p(s, d)
			if !ok || s.Mark().Offset == before.Offset {
				return out, true
			}
			out = append(out, v)
		}
	}
}

// SepBy matches zero or more p separated by sep.
func SepBy[T, S any](p Parser[T], sep Parser[S]) Parser[[]T] {
	return func(s *Scanner, d *diag.List) ([]T, bool) {
		first, ok := p(s, d)
		if !ok {
			return nil, true
		}
		out := []T{first}
		rest, _ := Many(Preceded(sep, p))(s, d)
		return append(out, rest...), true
	}
}

// Map transforms the result of p.
func Map[T, U any](p Parser[T], f func(T) U) Parser[U] {
	return func(s *Scanner, d *diag.List) (U, bool) {
		v, ok := p(s, d)
		if !ok {
			var zero U
			return zero, false
		}
		return f(v), true
	}
}

// Spanned runs p and also returns the span it consumed, trivia excluded.
func Spanned[T any](p Parser[T]) Parser[Pair[T, diag.Span]] {
	return func(s *Scanner, d *diag.List) (Pair[T, diag.Span], bool) {
		s.SkipTrivia()
		start := s.Mark()
		v, ok := p(s, d)
		if !ok {
			s.Reset(start)
			return Pair[T, diag.Span]{}, false
		}
		return Pair[T, diag.Span]{v, s.SpanFrom(start)}, true
	}
}

// Lazy refers to a parser through a pointer that is filled in later, which
// allows recursive grammars. The grammar is built once and then only read, so
// the resulting parser is safe for concurrent use.
func Lazy[T any](ref *Parser[T]) Parser[T] {
	return func(s *Scanner, d *diag.List) (T, bool) {
		return (*ref)(s, d)
	}
}

// Expect commits to p: when p fails it reports code at the current position
// and fails without further alternatives being meaningful.
func Expect[T any](p Parser[T], code diag.Code, what string) Parser[T] {
	return func(s *Scanner, d *diag.List) (T, bool) {
		v, ok := p(s, d)
		if !ok {
			s.SkipTrivia()
			d.Addf(diag.Pos(s.Mark()), code, "expected %s, found %s", what, describeNext(s))
		}
		return v, ok
	}
}

// Commit matches prefix and then requires rest. Once prefix has matched, a
// failure of rest is reported with code instead of backtracking quietly.
func Commit[P, T any](prefix Parser[P], rest Parser[T], code diag.Code, what string) Parser[T] {
	return Preceded(prefix, Expect(rest, code, what))
}

// Punct matches an exact operator or delimiter.
func Punct(text string) Parser[string] {
	return func(s *Scanner, _ *diag.List) (string, bool) {
		start := s.Mark()
		s.SkipTrivia()
		if !s.Consume(text) {
			s.Reset(start)
			return "", false
		}
		return text, true
	}
}

// AnyOf matches the longest of the given operators.
func AnyOf(texts ...string) Parser[string] {
	return func(s *Scanner, _ *diag.List) (string, bool) {
		start := s.Mark()
		s.SkipTrivia()
		best := ""
		for _, t := range texts {
			if len(t) > len(best) && s.HasPrefix(t) {
				best = t
			}
		}
		if best == "" {
			s.Reset(start)
			return "", false
		}
		s.Consume(best)
		return best, true
	}
}

// Operator matches op but not when it is the prefix of a longer operator in
// the excluded set (so "<" does not match the start of "<=" or "<<").
func Operator(op string, longer ...string) Parser[string] {
	return func(s *Scanner, _ *diag.List) (string, bool) {
		start := s.Mark()
		s.SkipTrivia()
		for _, l := range longer {
			if s.HasPrefix(l) {
				s.Reset(start)
				return "", false
			}
		}
		if !s.Consume(op) {
			s.Reset(start)
			return "", false
		}
		return op, true
	}
}

// Keyword matches word as a whole identifier.
func Keyword(word string) Parser[string] {
	return func(s *Scanner, _ *diag.List) (string, bool) {
		start := s.Mark()
		s.SkipTrivia()
		if !s.HasPrefix(word) || isIdentPart(s.PeekAt(len(word))) {
			s.Reset(start)
			return "", false
		}
		s.Consume(word)
		return word, true
	}
}

// Ident matches an identifier that is not a reserved word.
func Ident() Parser[string] {
	return func(s *Scanner, _ *diag.List) (string, bool) {
		start := s.Mark()
		s.SkipTrivia()
		if !isIdentStart(s.Peek()) {
			s.Reset(start)
			return "", false
		}
		name := s.ScanWhile(isIdentPart)
		if reserved[name] {
			s.Reset(start)
			return "", false
		}
		return name, true
	}
}

// QualifiedIdent matches dotted names such as "Material.Keys".
func QualifiedIdent() Parser[string] {
	parts := Seq2(Ident(), Many(Preceded(Punct("."), Ident())))
	return Map(parts, func(v Pair[string, []string]) string {
		return strings.Join(append([]string{v.First}, v.Second...), ".")
	})
}

// reserved words cannot be used as identifiers.
var reserved = map[string]bool{
	"shader": true, "effect": true, "params": true, "mixin": true, "using": true,
	"struct": true, "cbuffer": true, "return": true, "if": true, "else": true,
	"for": true, "while": true, "break": true, "continue": true, "discard": true,
	"true": true, "false": true, "stream": true, "stage": true, "static": true,
	"const": true, "override": true, "abstract": true, "clone": true,
	"compose": true, "in": true, "out": true, "inout": true, "namespace": true,
	"partial": true,
}

// describeNext renders the upcoming input for error messages.
func describeNext(s *Scanner) string {
	if s.AtEnd() {
		return "end of input"
	}
	r := s.Peek()
	if isIdentStart(r) {
		start := s.Mark()
		word := s.ScanWhile(isIdentPart)
		s.Reset(start)
		return fmt.Sprintf("%q", word)
	}
	return fmt.Sprintf("%q", string(r))
}
