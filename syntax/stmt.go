package syntax

import (
	"github.com/gogpu/sdsl/diag"
)

var assignOps = []string{"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>="}

// assignOperator matches an assignment operator but not "==".
func assignOperator() Parser[string] {
	return func(s *Scanner, d *diag.List) (string, bool) {
		start := s.Mark()
		s.SkipTrivia()
		if s.HasPrefix("==") {
			s.Reset(start)
			return "", false
		}
		s.Reset(start)
		return AnyOf(assignOps...)(s, d)
	}
}

func semicolon() Parser[string] {
	return Expect(Punct(";"), diag.CodeExpectedToken, "';'")
}

func (gr *grammar) buildStatements() {
	expr := Lazy(&gr.expr)
	stmt := Lazy(&gr.stmt)
	mustExpr := Expect(expr, diag.CodeExpectedExpr, "expression")

	gr.semantic = Preceded(Operator(":", "::"), Expect(Ident(), diag.CodeExpectedIdent, "semantic name"))
	gr.modifiers = modifiersParser()

	gr.block = blockParser(stmt, diag.CodeExpectedStmt, "statement")

	returnStmt := Map(Spanned(Seq2(Keyword("return"), FollowedBy(Opt(expr), semicolon()))),
		func(v Pair[Pair[string, Pair[Expr, bool]], diag.Span]) Stmt {
			r := &Return{Span: v.Second}
			if v.First.Second.Second {
				r.Value = v.First.Second.First
			}
			return r
		})

	flowStmt := Map(Spanned(FollowedBy(Alt(Keyword("break"), Keyword("continue"), Keyword("discard")), semicolon())),
		func(v Pair[string, diag.Span]) Stmt {
			kind := FlowBreak
			switch v.First {
			case "continue":
				kind = FlowContinue
			case "discard":
				kind = FlowDiscard
			}
			return &Flow{Kind: kind, Span: v.Second}
		})

	cond := Between(Expect(Punct("("), diag.CodeExpectedToken, "'('"), mustExpr, Expect(Punct(")"), diag.CodeExpectedToken, "')'"))
	mustStmt := Expect(stmt, diag.CodeExpectedStmt, "statement")

	ifStmt := Map(Spanned(Seq3(Preceded(Keyword("if"), cond), mustStmt, Opt(Preceded(Keyword("else"), mustStmt)))),
		func(v Pair[Triple[Expr, Stmt, Pair[Stmt, bool]], diag.Span]) Stmt {
			s := &If{Cond: v.First.First, Then: v.First.Second, Span: v.Second}
			if v.First.Third.Second {
				s.Else = v.First.Third.First
			}
			return s
		})

	whileStmt := Map(Spanned(Seq2(Preceded(Keyword("while"), cond), mustStmt)),
		func(v Pair[Pair[Expr, Stmt], diag.Span]) Stmt {
			return &While{Cond: v.First.First, Body: v.First.Second, Span: v.Second}
		})

	localDecl := localDeclParser(gr)
	simple := simpleStatement(expr)

	forInit := Alt(
		Map(Punct(";"), func(string) Stmt { return nil }),
		localDecl,
		FollowedBy(simple, semicolon()),
	)
	forHeader := Seq3(
		Preceded(Keyword("for"), Preceded(Expect(Punct("("), diag.CodeExpectedToken, "'('"), forInit)),
		FollowedBy(Opt(expr), semicolon()),
		FollowedBy(Opt(simple), Expect(Punct(")"), diag.CodeExpectedToken, "')'")),
	)
	forStmt := Map(Spanned(Seq2(forHeader, mustStmt)),
		func(v Pair[Pair[Triple[Stmt, Pair[Expr, bool], Pair[Stmt, bool]], Stmt], diag.Span]) Stmt {
			h := v.First.First
			f := &For{Init: h.First, Body: v.First.Second, Span: v.Second}
			if h.Second.Second {
				f.Cond = h.Second.First
			}
			if h.Third.Second {
				f.Post = h.Third.First
			}
			return f
		})

	blockStmt := Map(gr.block, func(b *Block) Stmt { return b })

	gr.stmt = Alt(
		blockStmt,
		returnStmt,
		ifStmt,
		forStmt,
		whileStmt,
		flowStmt,
		localDecl,
		FollowedBy(simple, semicolon()),
	)

	gr.buildEffectStatements()
}

// simpleStatement parses an assignment or expression statement without the
// trailing semicolon.
func simpleStatement(expr Parser[Expr]) Parser[Stmt] {
	return func(s *Scanner, d *diag.List) (Stmt, bool) {
		target, ok := expr(s, d)
		if !ok {
			return nil, false
		}
		op, ok := assignOperator()(s, d)
		if !ok {
			return &ExpressionStatement{X: target, Span: target.Pos()}, true
		}
		value, ok := Expect(expr, diag.CodeExpectedExpr, "expression")(s, d)
		if !ok {
			return nil, false
		}
		span := target.Pos().Join(value.Pos())
		switch t := Unparen(target).(type) {
		case *VariableName:
			return &Assign{Target: t, Op: op, Value: value, Span: span}, true
		case *ChainAccessor, *ArrayAccessor:
			return &AssignChain{Target: t, Op: op, Value: value, Span: span}, true
		default:
			d.Add(target.Pos(), diag.CodeInvalidAssignTgt, "left side of assignment is not assignable")
			return &ExpressionStatement{X: value, Span: span}, true
		}
	}
}

// localDeclParser parses "T name [N] = value;" inside method bodies.
func localDeclParser(gr *grammar) Parser[Stmt] {
	expr := Lazy(&gr.expr)
	typeName := Lazy(&gr.typeName)
	arraySize := Between(Punct("["), Expect(expr, diag.CodeExpectedExpr, "array size"), Expect(Punct("]"), diag.CodeExpectedToken, "']'"))
	init := Preceded(Operator("=", "=="), Expect(expr, diag.CodeExpectedExpr, "initializer"))

	head := Seq3(Lazy(&gr.modifiers), typeName, Ident())
	return func(s *Scanner, d *diag.List) (Stmt, bool) {
		s.SkipTrivia()
		start := s.Mark()
		h, ok := head(s, d)
		if !ok {
			return nil, false
		}
		// A declaration is only recognized when the name is followed by
		// something a declaration can continue with.
		s2 := s.Mark()
		s.SkipTrivia()
		switch s.Peek() {
		case '=', ';', '[', ',':
		default:
			s.Reset(start)
			return nil, false
		}
		s.Reset(s2)

		decl := &VariableDecl{Modifiers: h.First, Type: h.Second, Name: h.Third}
		if size, ok := arraySize(s, d); ok {
			decl.ArraySize = size
		}
		if v, ok := init(s, d); ok {
			decl.Value = v
		}
		if _, ok := semicolon()(s, d); !ok {
			s.SkipTo(';', '}')
			s.Consume(";")
		}
		decl.Span = s.SpanFrom(start)
		return decl, true
	}
}

// blockParser parses "{ item* }" with statement-level recovery: an item that
// fails to parse is reported and skipped up to the next ';' or '}'.
func blockParser(item Parser[Stmt], code diag.Code, what string) Parser[*Block] {
	return func(s *Scanner, d *diag.List) (*Block, bool) {
		outer := s.Mark()
		s.SkipTrivia()
		start := s.Mark()
		if !s.Consume("{") {
			s.Reset(outer)
			return nil, false
		}
		block := &Block{}
		for {
			if !s.SkipTrivia() {
				d.Add(diag.Pos(s.Mark()), diag.CodeUnterminated, "unterminated block comment")
			}
			if s.AtEnd() {
				d.Add(diag.Pos(s.Mark()), diag.CodeExpectedToken, "expected '}', found end of input")
				break
			}
			if s.Consume("}") {
				break
			}
			before := len(*d)
			st, ok := item(s, d)
			if ok {
				if st != nil {
					block.Stmts = append(block.Stmts, st)
				}
				continue
			}
			if len(*d) == before {
				d.Addf(diag.Pos(s.Mark()), code, "expected %s, found %s", what, describeNext(s))
			}
			s.SkipTo(';', '}')
			s.Consume(";")
		}
		block.Span = s.SpanFrom(start)
		return block, true
	}
}

func modifiersParser() Parser[Modifiers] {
	return func(s *Scanner, d *diag.List) (Modifiers, bool) {
		var mods Modifiers
	loop:
		for {
			for _, m := range modifierWords {
				if _, ok := Keyword(m.word)(s, d); ok {
					mods |= m.mod
					continue loop
				}
			}
			return mods, true
		}
	}
}

func (gr *grammar) buildEffectStatements() {
	expr := Lazy(&gr.expr)
	effStmt := Lazy(&gr.effStmt)
	mustExpr := Expect(expr, diag.CodeExpectedExpr, "expression")

	gr.effBlock = blockParser(effStmt, diag.CodeExpectedStmt, "effect statement")

	using := Map(Spanned(FollowedBy(
		Commit(Seq2(Keyword("using"), Keyword("params")), QualifiedIdent(), diag.CodeExpectedIdent, "parameter block name"),
		semicolon())),
		func(v Pair[string, diag.Span]) Stmt { return &UsingParams{Name: v.First, Span: v.Second} })

	source := Map(Spanned(Seq2(
		Preceded(Keyword("ShaderSource"), Expect(Ident(), diag.CodeExpectedIdent, "shader source name")),
		Preceded(Expect(Operator("=", "=="), diag.CodeExpectedToken, "'='"), FollowedBy(mustExpr, semicolon())),
	)), func(v Pair[Pair[string, Expr], diag.Span]) Stmt {
		return &ShaderSourceDeclaration{Name: v.First.First, Value: v.First.Second, Span: v.Second}
	})

	cond := Between(Expect(Punct("("), diag.CodeExpectedToken, "'('"), mustExpr, Expect(Punct(")"), diag.CodeExpectedToken, "')'"))
	mustEff := Expect(effStmt, diag.CodeExpectedStmt, "effect statement")
	ifStmt := Map(Spanned(Seq3(Preceded(Keyword("if"), cond), mustEff, Opt(Preceded(Keyword("else"), mustEff)))),
		func(v Pair[Triple[Expr, Stmt, Pair[Stmt, bool]], diag.Span]) Stmt {
			s := &If{Cond: v.First.First, Then: v.First.Second, Span: v.Second}
			if v.First.Third.Second {
				s.Else = v.First.Third.First
			}
			return s
		})

	gr.effStmt = Alt(
		Map(gr.effBlock, func(b *Block) Stmt { return b }),
		using,
		mixinParser(expr),
		ifStmt,
		source,
	)
}

// mixinParser parses "mixin [kind] tail;" where tail is "Name = expr",
// "Name += expr" or an expression.
func mixinParser(expr Parser[Expr]) Parser[Stmt] {
	kinds := map[string]MixinKind{
		"compose": MixinComposeSet,
		"child":   MixinChild,
		"clone":   MixinClone,
		"macro":   MixinMacro,
		"remove":  MixinRemove,
	}
	kind := Alt(Keyword("compose"), Keyword("child"), Keyword("clone"), Keyword("macro"), Keyword("remove"))
	assignTail := Seq3(Ident(), Alt(Operator("+="), Operator("=", "==")), Expect(expr, diag.CodeExpectedExpr, "mixin value"))

	return func(s *Scanner, d *diag.List) (Stmt, bool) {
		s.SkipTrivia()
		start := s.Mark()
		if _, ok := Keyword("mixin")(s, d); !ok {
			return nil, false
		}
		m := &Mixin{Kind: MixinDefault}
		if k, ok := kind(s, d); ok {
			m.Kind = kinds[k]
		}

		if tail, ok := assignTail(s, d); ok {
			m.Name = tail.First
			m.Value = tail.Third
			if tail.Second == "+=" {
				if m.Kind != MixinComposeSet {
					d.Add(s.SpanFrom(start), diag.CodeInvalidMixin, "'+=' is only valid in a compose mixin")
				}
				m.Kind = MixinComposeAdd
			} else if m.Kind != MixinComposeSet && m.Kind != MixinMacro {
				d.Addf(s.SpanFrom(start), diag.CodeInvalidMixin, "assignment is not valid in a %s mixin", m.Kind)
			}
		} else if v, ok := expr(s, d); ok {
			m.Value = v
		} else if m.Kind != MixinClone {
			d.Addf(diag.Pos(s.Mark()), diag.CodeInvalidMixin, "expected shader or assignment after %s, found %s", m.Kind, describeNext(s))
		}
		if m.Kind == MixinComposeSet && m.Name == "" {
			d.Add(s.SpanFrom(start), diag.CodeInvalidMixin, "compose mixin requires 'Name = Shader'")
		}

		if _, ok := semicolon()(s, d); !ok {
			s.SkipTo(';', '}')
			s.Consume(";")
		}
		m.Span = s.SpanFrom(start)
		return m, true
	}
}
