package syntax

import (
	"unicode"
	"unicode/utf8"

	"github.com/gogpu/sdsl/diag"
)

// Scanner is a character-level cursor over SDSL source text.
//
// The scanner has no token stream; parsers pull characters through it and
// rewind by restoring a saved Position.
type Scanner struct {
	source string
	pos    diag.Position
}

// NewScanner creates a scanner at the start of source.
func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		pos:    diag.Position{Offset: 0, Line: 1, Column: 1},
	}
}

// Source returns the scanned text.
func (s *Scanner) Source() string {
	return s.source
}

// Mark returns the current position for a later Reset.
func (s *Scanner) Mark() diag.Position {
	return s.pos
}

// Reset rewinds (or advances) the scanner to p.
func (s *Scanner) Reset(p diag.Position) {
	s.pos = p
}

// SpanFrom returns the span from start to the current position.
func (s *Scanner) SpanFrom(start diag.Position) diag.Span {
	return diag.Span{Start: start, End: s.pos}
}

// AtEnd reports whether all input has been consumed.
func (s *Scanner) AtEnd() bool {
	return s.pos.Offset >= len(s.source)
}

// Peek returns the next rune without consuming it, or 0 at the end.
func (s *Scanner) Peek() rune {
	if s.AtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.pos.Offset:])
	return r
}

// PeekAt returns the rune n bytes ahead, assuming ASCII lookahead.
func (s *Scanner) PeekAt(n int) rune {
	off := s.pos.Offset + n
	if off >= len(s.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[off:])
	return r
}

// Advance consumes and returns one rune.
func (s *Scanner) Advance() rune {
	if s.AtEnd() {
		return 0
	}
	r, size := utf8.DecodeRuneInString(s.source[s.pos.Offset:])
	s.pos.Offset += size
	if r == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
	return r
}

// HasPrefix reports whether the remaining input starts with text.
func (s *Scanner) HasPrefix(text string) bool {
	rest := s.source[s.pos.Offset:]
	return len(rest) >= len(text) && rest[:len(text)] == text
}

// Consume advances past text if the input starts with it.
func (s *Scanner) Consume(text string) bool {
	if !s.HasPrefix(text) {
		return false
	}
	for range len(text) {
		s.Advance()
	}
	return true
}

// SkipTrivia skips whitespace and comments. It returns false when a block
// comment is left open.
func (s *Scanner) SkipTrivia() bool {
	for !s.AtEnd() {
		switch r := s.Peek(); {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			s.Advance()
		case r == '/' && s.PeekAt(1) == '/':
			for !s.AtEnd() && s.Peek() != '\n' {
				s.Advance()
			}
		case r == '/' && s.PeekAt(1) == '*':
			s.Advance()
			s.Advance()
			for !s.AtEnd() && !s.HasPrefix("*/") {
				s.Advance()
			}
			if !s.Consume("*/") {
				return false
			}
		default:
			return true
		}
	}
	return true
}

// ScanWhile consumes runes while pred holds and returns them.
func (s *Scanner) ScanWhile(pred func(rune) bool) string {
	start := s.pos.Offset
	for !s.AtEnd() && pred(s.Peek()) {
		s.Advance()
	}
	return s.source[start:s.pos.Offset]
}

// SkipTo advances until one of the stop runes is next (not consumed) or the
// input ends, stepping over balanced braces.
func (s *Scanner) SkipTo(stops ...rune) {
	depth := 0
	for !s.AtEnd() {
		r := s.Peek()
		if depth == 0 {
			for _, stop := range stops {
				if r == stop {
					return
				}
			}
		}
		switch r {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return
			}
			depth--
		}
		s.Advance()
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
