package syntax

import (
	"github.com/gogpu/sdsl/diag"
)

func (gr *grammar) buildDeclarations() {
	expr := Lazy(&gr.expr)
	typeName := Lazy(&gr.typeName)
	member := Lazy(&gr.member)
	decl := Lazy(&gr.decl)
	name := func(what string) Parser[string] {
		return Expect(Ident(), diag.CodeExpectedIdent, what)
	}

	field := fieldParser(gr)

	structDecl := Map(Spanned(Seq2(
		Preceded(Keyword("struct"), name("struct name")),
		FollowedBy(declBody(field), Opt(Punct(";"))),
	)), func(v Pair[Pair[string, []*VariableDecl], diag.Span]) Decl {
		return &StructDecl{Name: v.First.First, Fields: v.First.Second, Span: v.Second}
	})

	cbuffer := Map(Spanned(Seq2(
		Preceded(Keyword("cbuffer"), name("cbuffer name")),
		FollowedBy(declBody(field), Opt(Punct(";"))),
	)), func(v Pair[Pair[string, []*VariableDecl], diag.Span]) Decl {
		return &CBufferDecl{Name: v.First.First, Members: v.First.Second, Span: v.Second}
	})

	composition := Map(Spanned(Seq3(
		Preceded(Keyword("compose"), Expect(Ident(), diag.CodeExpectedType, "composition type")),
		name("composition name"),
		FollowedBy(Opt(Seq2(Punct("["), Punct("]"))), semicolon()),
	)), func(v Pair[Triple[string, string, Pair[Pair[string, string], bool]], diag.Span]) Decl {
		return &CompositionDecl{Type: v.First.First, Name: v.First.Second, Array: v.First.Third.Second, Span: v.Second}
	})

	gr.member = Alt(structDecl, cbuffer, composition, memberParser(gr))

	bases := Preceded(Operator(":", "::"), SepBy(Ident(), Punct(",")))
	shaderDecl := Map(Spanned(Seq3(
		Preceded(Keyword("shader"), name("shader name")),
		Opt(bases),
		FollowedBy(declBody(member), Opt(Punct(";"))),
	)), func(v Pair[Triple[string, Pair[[]string, bool], []Decl], diag.Span]) Decl {
		return &ShaderDecl{Name: v.First.First, Bases: v.First.Second.First, Members: v.First.Third, Span: v.Second}
	})

	effectDecl := Map(Spanned(Seq3(
		Opt(Keyword("partial")),
		Preceded(Keyword("effect"), name("effect name")),
		FollowedBy(Expect(Lazy(&gr.effBlock), diag.CodeExpectedToken, "'{'"), Opt(Punct(";"))),
	)), func(v Pair[Triple[Pair[string, bool], string, *Block], diag.Span]) Decl {
		return &EffectDecl{Partial: v.First.First.Second, Name: v.First.Second, Body: v.First.Third, Span: v.Second}
	})

	param := Map(Spanned(Seq3(
		typeName,
		name("parameter name"),
		FollowedBy(Opt(Preceded(Operator("=", "=="), Expect(expr, diag.CodeExpectedExpr, "default value"))), semicolon()),
	)), func(v Pair[Triple[*TypeName, string, Pair[Expr, bool]], diag.Span]) *VariableDecl {
		p := &VariableDecl{Type: v.First.First, Name: v.First.Second, Span: v.Second}
		if v.First.Third.Second {
			p.Value = v.First.Third.First
		}
		return p
	})
	paramsDecl := Map(Spanned(Seq2(
		Preceded(Keyword("params"), name("parameter block name")),
		FollowedBy(declBody(param), Opt(Punct(";"))),
	)), func(v Pair[Pair[string, []*VariableDecl], diag.Span]) Decl {
		return &ParamsDecl{Name: v.First.First, Params: v.First.Second, Span: v.Second}
	})

	namespaceDecl := Map(Spanned(Seq2(
		Preceded(Keyword("namespace"), Expect(QualifiedIdent(), diag.CodeExpectedIdent, "namespace name")),
		declBody(decl),
	)), func(v Pair[Pair[string, []Decl], diag.Span]) Decl {
		return &NamespaceDecl{Name: v.First.First, Decls: v.First.Second, Span: v.Second}
	})

	gr.decl = Alt(shaderDecl, effectDecl, paramsDecl, namespaceDecl, structDecl, memberParser(gr))
}

// declBody parses "{ item* }" with declaration-level recovery.
func declBody[T any](item Parser[T]) Parser[[]T] {
	return func(s *Scanner, d *diag.List) ([]T, bool) {
		if _, ok := Expect(Punct("{"), diag.CodeExpectedToken, "'{'")(s, d); !ok {
			return nil, false
		}
		var out []T
		for {
			s.SkipTrivia()
			if s.AtEnd() {
				d.Add(diag.Pos(s.Mark()), diag.CodeExpectedToken, "expected '}', found end of input")
				return out, true
			}
			if s.Consume("}") {
				return out, true
			}
			before := len(*d)
			v, ok := item(s, d)
			if ok {
				out = append(out, v)
				continue
			}
			if len(*d) == before {
				d.Addf(diag.Pos(s.Mark()), diag.CodeExpectedDecl, "expected declaration, found %s", describeNext(s))
			}
			s.SkipTo(';', '}')
			s.Consume(";")
		}
	}
}

// fieldParser parses struct fields and cbuffer members:
// "[modifiers] T name [N] [: SEMANTIC] [= value];".
func fieldParser(gr *grammar) Parser[*VariableDecl] {
	head := Seq3(Lazy(&gr.modifiers), Lazy(&gr.typeName), Ident())
	return func(s *Scanner, d *diag.List) (*VariableDecl, bool) {
		s.SkipTrivia()
		start := s.Mark()
		h, ok := head(s, d)
		if !ok {
			return nil, false
		}
		v := &VariableDecl{Modifiers: h.First, Type: h.Second, Name: h.Third}
		gr.variableTail(v, s, d)
		v.Span = s.SpanFrom(start)
		return v, true
	}
}

// variableTail parses what follows a variable name.
func (gr *grammar) variableTail(v *VariableDecl, s *Scanner, d *diag.List) {
	expr := Lazy(&gr.expr)
	arraySize := Between(Punct("["), Expect(expr, diag.CodeExpectedExpr, "array size"), Expect(Punct("]"), diag.CodeExpectedToken, "']'"))
	if size, ok := arraySize(s, d); ok {
		v.ArraySize = size
	}
	if sem, ok := gr.semantic(s, d); ok {
		v.Semantic = sem
	}
	if val, ok := Preceded(Operator("=", "=="), Expect(expr, diag.CodeExpectedExpr, "initializer"))(s, d); ok {
		v.Value = val
	}
	if _, ok := semicolon()(s, d); !ok {
		s.SkipTo(';', '}')
		s.Consume(";")
	}
}

// memberParser parses a method or a variable: both start with modifiers, a
// type and a name.
func memberParser(gr *grammar) Parser[Decl] {
	head := Seq3(Lazy(&gr.modifiers), Lazy(&gr.typeName), Ident())
	param := paramParser(gr)
	params := Between(Punct("("), SepBy(param, Punct(",")), Expect(Punct(")"), diag.CodeExpectedToken, "')'"))

	return func(s *Scanner, d *diag.List) (Decl, bool) {
		s.SkipTrivia()
		start := s.Mark()
		h, ok := head(s, d)
		if !ok {
			return nil, false
		}
		if ps, ok := params(s, d); ok {
			m := &MethodDecl{Modifiers: h.First, Result: h.Second, Name: h.Third, Params: ps}
			if sem, ok := gr.semantic(s, d); ok {
				m.Semantic = sem
			}
			if h.First.Has(ModAbstract) {
				if _, ok := Punct(";")(s, d); ok {
					m.Span = s.SpanFrom(start)
					return m, true
				}
			}
			body, ok := Expect(Lazy(&gr.block), diag.CodeExpectedToken, "method body")(s, d)
			if !ok {
				s.SkipTo(';', '}')
				s.Consume(";")
			}
			m.Body = body
			m.Span = s.SpanFrom(start)
			return m, true
		}
		v := &VariableDecl{Modifiers: h.First, Type: h.Second, Name: h.Third}
		gr.variableTail(v, s, d)
		v.Span = s.SpanFrom(start)
		return v, true
	}
}

func paramParser(gr *grammar) Parser[*Param] {
	qualifier := Alt(Keyword("inout"), Keyword("in"), Keyword("out"))
	return Map(Spanned(Seq3(
		Opt(qualifier),
		Seq2(Lazy(&gr.typeName), Expect(Ident(), diag.CodeExpectedIdent, "parameter name")),
		Opt(Lazy(&gr.semantic)),
	)), func(v Pair[Triple[Pair[string, bool], Pair[*TypeName, string], Pair[string, bool]], diag.Span]) *Param {
		return &Param{
			Qualifier: v.First.First.First,
			Type:      v.First.Second.First,
			Name:      v.First.Second.Second,
			Semantic:  v.First.Third.First,
			Span:      v.Second,
		}
	})
}
