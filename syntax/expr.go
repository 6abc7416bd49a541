package syntax

import (
	"strings"

	"github.com/gogpu/sdsl/diag"
)

// grammar holds the parsers of the SDSL grammar. It is built once at package
// initialization; recursive rules refer to each other through Lazy.
type grammar struct {
	expr      Parser[Expr]
	ternary   Parser[Expr]
	unary     Parser[Expr]
	postfix   Parser[Expr]
	primary   Parser[Expr]
	args      Parser[[]Expr]
	typeName  Parser[*TypeName]
	stmt      Parser[Stmt]
	block     Parser[*Block]
	effStmt   Parser[Stmt]
	effBlock  Parser[*Block]
	decl      Parser[Decl]
	member    Parser[Decl]
	semantic  Parser[string]
	modifiers Parser[Modifiers]
}

var g = newGrammar()

func newGrammar() *grammar {
	gr := &grammar{}
	gr.buildExpressions()
	gr.buildStatements()
	gr.buildDeclarations()
	return gr
}

// binaryLevel parses left-associative chains of operand (op operand)*.
func binaryLevel(operand Parser[Expr], op Parser[string]) Parser[Expr] {
	rhs := Seq2(op, Expect(operand, diag.CodeExpectedExpr, "expression"))
	return Map(Seq2(operand, Many(rhs)), func(v Pair[Expr, []Pair[string, Expr]]) Expr {
		left := v.First
		for _, r := range v.Second {
			left = &Operation{
				Op:    r.First,
				Left:  left,
				Right: r.Second,
				Span:  left.Pos().Join(r.Second.Pos()),
			}
		}
		return left
	})
}

func (gr *grammar) buildExpressions() {
	expr := Lazy(&gr.expr)
	unary := Lazy(&gr.unary)

	gr.args = Between(Punct("("), SepBy(expr, Punct(",")), Expect(Punct(")"), diag.CodeExpectedToken, "')'"))

	paren := Map(Spanned(Between(Punct("("), expr, Expect(Punct(")"), diag.CodeExpectedToken, "')'"))),
		func(v Pair[Expr, diag.Span]) Expr { return &Paren{X: v.First, Span: v.Second} })

	boolLit := Map(Spanned(Alt(Keyword("true"), Keyword("false"))),
		func(v Pair[string, diag.Span]) Expr { return &Bool{Value: v.First == "true", Span: v.Second} })

	nameOrCall := Map(Spanned(Seq2(Ident(), Opt(Lazy(&gr.args)))),
		func(v Pair[Pair[string, Pair[[]Expr, bool]], diag.Span]) Expr {
			name, call := v.First.First, v.First.Second
			if call.Second {
				return &MethodCall{Name: name, Args: call.First, Span: v.Second}
			}
			return &VariableName{Name: name, Span: v.Second}
		})

	gr.primary = Alt(NumberLiteral(), boolLit, nameOrCall, paren)
	gr.postfix = postfixExpr(gr.primary, expr, Lazy(&gr.args))

	prefixOp := Alt(
		Operator("++"), Operator("--"),
		Operator("-", "-=", "--"), Operator("!", "!="), Operator("~"), Operator("+", "+=", "++"),
	)
	prefix := Map(Spanned(Seq2(prefixOp, Expect(unary, diag.CodeExpectedExpr, "operand"))),
		func(v Pair[Pair[string, Expr], diag.Span]) Expr {
			return &Unary{Op: v.First.First, X: v.First.Second, Span: v.Second}
		})
	gr.unary = Alt(prefix, gr.postfix)

	mul := binaryLevel(unary, Alt(Operator("*", "*="), Operator("/", "/="), Operator("%", "%=")))
	add := binaryLevel(mul, Alt(Operator("+", "+=", "++"), Operator("-", "-=", "--")))
	shift := binaryLevel(add, Alt(Operator("<<", "<<="), Operator(">>", ">>=")))
	rel := binaryLevel(shift, Alt(Operator("<="), Operator(">="), Operator("<", "<=", "<<"), Operator(">", ">=", ">>")))
	eq := binaryLevel(rel, Alt(Operator("=="), Operator("!=")))
	bitAnd := binaryLevel(eq, Operator("&", "&&", "&="))
	bitXor := binaryLevel(bitAnd, Operator("^", "^="))
	bitOr := binaryLevel(bitXor, Operator("|", "||", "|="))
	and := binaryLevel(bitOr, Operator("&&"))
	or := binaryLevel(and, Operator("||"))

	ternaryTail := Seq2(
		Preceded(Punct("?"), Expect(expr, diag.CodeExpectedExpr, "expression")),
		Preceded(Expect(Punct(":"), diag.CodeExpectedToken, "':'"), Expect(Lazy(&gr.ternary), diag.CodeExpectedExpr, "expression")),
	)
	gr.ternary = Map(Seq2(or, Opt(ternaryTail)), func(v Pair[Expr, Pair[Pair[Expr, Expr], bool]]) Expr {
		if !v.Second.Second {
			return v.First
		}
		t := v.Second.First
		return &Ternary{Cond: v.First, Then: t.First, Else: t.Second, Span: v.First.Pos().Join(t.Second.Pos())}
	})
	gr.expr = gr.ternary

	gr.typeName = typeNameParser(expr)
}

// postfixExpr parses member access, method calls, indexing and postfix
// increments applied to a primary expression.
func postfixExpr(primary, expr Parser[Expr], args Parser[[]Expr]) Parser[Expr] {
	member := Preceded(Operator(".", ".."), Expect(Ident(), diag.CodeExpectedIdent, "member name"))
	index := Between(Punct("["), Expect(expr, diag.CodeExpectedExpr, "index expression"), Expect(Punct("]"), diag.CodeExpectedToken, "']'"))
	incr := Alt(Operator("++"), Operator("--"))

	return func(s *Scanner, d *diag.List) (Expr, bool) {
		x, ok := primary(s, d)
		if !ok {
			return nil, false
		}
		for {
			if name, ok := member(s, d); ok {
				if callArgs, ok := args(s, d); ok {
					x = &MethodCall{Receiver: x, Name: name, Args: callArgs, Span: s.SpanFrom(x.Pos().Start)}
				} else {
					x = &ChainAccessor{X: x, Field: name, Span: s.SpanFrom(x.Pos().Start)}
				}
				continue
			}
			if idx, ok := index(s, d); ok {
				x = &ArrayAccessor{X: x, Index: idx, Span: s.SpanFrom(x.Pos().Start)}
				continue
			}
			if op, ok := incr(s, d); ok {
				x = &Unary{Op: op, X: x, Postfix: true, Span: s.SpanFrom(x.Pos().Start)}
				continue
			}
			return x, true
		}
	}
}

// NumberLiteral scans decimal, hexadecimal and floating point literals with
// their type suffixes (u, l, ul, f, h, d, lf).
func NumberLiteral() Parser[Expr] {
	return func(s *Scanner, d *diag.List) (Expr, bool) {
		outer := s.Mark()
		s.SkipTrivia()
		start := s.Mark()

		r := s.Peek()
		if !isDigit(r) && !(r == '.' && isDigit(s.PeekAt(1))) {
			s.Reset(outer)
			return nil, false
		}

		if r == '0' && (s.PeekAt(1) == 'x' || s.PeekAt(1) == 'X') {
			s.Advance()
			s.Advance()
			if s.ScanWhile(isHexDigit) == "" {
				d.Add(s.SpanFrom(start), diag.CodeInvalidNumber, "hexadecimal literal has no digits")
			}
		} else {
			s.ScanWhile(isDigit)
			if s.Peek() == '.' && !isIdentStart(s.PeekAt(1)) {
				s.Advance()
				s.ScanWhile(isDigit)
			} else if s.Peek() == '.' && (isExponentStart(s, 1) || suffixAfterDot(s)) {
				s.Advance()
			}
			if s.Peek() == 'e' || s.Peek() == 'E' {
				if isExponentStart(s, 0) {
					s.Advance()
					if s.Peek() == '+' || s.Peek() == '-' {
						s.Advance()
					}
					s.ScanWhile(isDigit)
				}
			}
		}

		suffix := s.ScanWhile(isIdentPart)
		text := s.SpanFrom(start).Text(s.Source())
		if !validNumberSuffix(strings.ToLower(suffix)) {
			d.Addf(s.SpanFrom(start), diag.CodeInvalidNumber, "invalid suffix %q on number %q", suffix, text)
		}
		return &Number{Text: text, Span: s.SpanFrom(start)}, true
	}
}

// suffixAfterDot reports whether the '.' at the scanner is followed by a
// type suffix, as in "1.f".
func suffixAfterDot(s *Scanner) bool {
	var word []rune
	for i := 1; isIdentPart(s.PeekAt(i)); i++ {
		word = append(word, s.PeekAt(i))
	}
	return len(word) > 0 && validNumberSuffix(strings.ToLower(string(word)))
}

func isExponentStart(s *Scanner, at int) bool {
	c := s.PeekAt(at)
	if c != 'e' && c != 'E' {
		return false
	}
	next := s.PeekAt(at + 1)
	if next == '+' || next == '-' {
		next = s.PeekAt(at + 2)
	}
	return isDigit(next)
}

func validNumberSuffix(suffix string) bool {
	switch suffix {
	case "", "u", "l", "ul", "lu", "f", "h", "d", "lf":
		return true
	default:
		return false
	}
}

// typeNameParser parses float3, float4x4, vector<float,3>, MyStruct and
// array forms such as float[4].
func typeNameParser(expr Parser[Expr]) Parser[*TypeName] {
	genericArg := Alt(Ident(), Map(NumberLiteral(), func(e Expr) string { return e.(*Number).Text }))
	generic := Between(Punct("<"), SepBy(genericArg, Punct(",")), Punct(">"))
	array := Between(Punct("["), expr, Punct("]"))

	return Map(Spanned(Seq3(Ident(), Opt(generic), Opt(array))),
		func(v Pair[Triple[string, Pair[[]string, bool], Pair[Expr, bool]], diag.Span]) *TypeName {
			t := &TypeName{Name: v.First.First, Span: v.Second}
			if v.First.Second.Second {
				t.Args = v.First.Second.First
			}
			if v.First.Third.Second {
				t.ArraySize = v.First.Third.First
			}
			return t
		})
}
