package syntax

import (
	"fmt"
	"strings"
)

// Print renders a node as SDSL source. Parsing the output of Print yields a
// tree equal to the input up to source spans.
func Print(node Node) string {
	p := &printer{}
	switch n := node.(type) {
	case Decl:
		p.decl(n)
	case Stmt:
		p.stmt(n)
	case Expr:
		p.WriteString(exprString(n))
	case *TypeName:
		p.WriteString(typeString(n))
	default:
		panic(fmt.Sprintf("syntax.Print: unexpected node %T", node))
	}
	return p.String()
}

// PrintFile renders a whole file, one declaration after another.
func PrintFile(f *File) string {
	p := &printer{}
	for i, d := range f.Decls {
		if i > 0 {
			p.WriteByte('\n')
		}
		p.decl(d)
	}
	return p.String()
}

type printer struct {
	strings.Builder
	depth int
}

func (p *printer) line(format string, args ...any) {
	p.WriteString(strings.Repeat("    ", p.depth))
	fmt.Fprintf(p, format, args...)
	p.WriteByte('\n')
}

func (p *printer) open() {
	p.line("{")
	p.depth++
}

func (p *printer) close(suffix string) {
	p.depth--
	p.line("}" + suffix)
}

func (p *printer) decl(d Decl) {
	switch d := d.(type) {
	case *ShaderDecl:
		head := "shader " + d.Name
		if len(d.Bases) > 0 {
			head += " : " + strings.Join(d.Bases, ", ")
		}
		p.line("%s", head)
		p.open()
		for _, m := range d.Members {
			p.decl(m)
		}
		p.close(";")
	case *StructDecl:
		p.line("struct %s", d.Name)
		p.open()
		for _, f := range d.Fields {
			p.line("%s", variableString(f))
		}
		p.close(";")
	case *CBufferDecl:
		p.line("cbuffer %s", d.Name)
		p.open()
		for _, m := range d.Members {
			p.line("%s", variableString(m))
		}
		p.close(";")
	case *CompositionDecl:
		suffix := ""
		if d.Array {
			suffix = "[]"
		}
		p.line("compose %s %s%s;", d.Type, d.Name, suffix)
	case *NamespaceDecl:
		p.line("namespace %s", d.Name)
		p.open()
		for _, inner := range d.Decls {
			p.decl(inner)
		}
		p.close("")
	case *ParamsDecl:
		p.line("params %s", d.Name)
		p.open()
		for _, v := range d.Params {
			p.line("%s", variableString(v))
		}
		p.close(";")
	case *EffectDecl:
		head := "effect " + d.Name
		if d.Partial {
			head = "partial " + head
		}
		p.line("%s", head)
		p.block(d.Body, ";")
	case *VariableDecl:
		p.line("%s", variableString(d))
	case *MethodDecl:
		params := make([]string, len(d.Params))
		for i, prm := range d.Params {
			params[i] = paramString(prm)
		}
		head := fmt.Sprintf("%s%s %s(%s)", modifierString(d.Modifiers), typeString(d.Result), d.Name, strings.Join(params, ", "))
		if d.Semantic != "" {
			head += " : " + d.Semantic
		}
		if d.Body == nil {
			p.line("%s;", head)
			return
		}
		p.line("%s", head)
		p.block(d.Body, "")
	default:
		panic(fmt.Sprintf("syntax.Print: unexpected declaration %T", d))
	}
}

func (p *printer) block(b *Block, suffix string) {
	p.open()
	if b != nil {
		for _, s := range b.Stmts {
			p.stmt(s)
		}
	}
	p.close(suffix)
}

// nested prints the body of if, for and while: blocks stay at the current
// depth, single statements are indented one level.
func (p *printer) nested(s Stmt) {
	if b, ok := s.(*Block); ok {
		p.block(b, "")
		return
	}
	p.depth++
	p.stmt(s)
	p.depth--
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *Block:
		p.block(s, "")
	case *VariableDecl:
		p.line("%s", variableString(s))
	case *Assign, *AssignChain, *ExpressionStatement:
		p.line("%s;", simpleString(s))
	case *Return:
		if s.Value == nil {
			p.line("return;")
		} else {
			p.line("return %s;", exprString(s.Value))
		}
	case *Flow:
		p.line("%s;", s.Kind)
	case *If:
		p.line("if (%s)", exprString(s.Cond))
		p.nested(s.Then)
		if s.Else != nil {
			p.line("else")
			p.nested(s.Else)
		}
	case *While:
		p.line("while (%s)", exprString(s.Cond))
		p.nested(s.Body)
	case *For:
		init := ";"
		switch i := s.Init.(type) {
		case nil:
		case *VariableDecl:
			init = variableString(i)
		default:
			init = simpleString(i) + ";"
		}
		cond := ""
		if s.Cond != nil {
			cond = " " + exprString(s.Cond)
		}
		post := ""
		if s.Post != nil {
			post = " " + simpleString(s.Post)
		}
		p.line("for (%s%s;%s)", init, cond, post)
		p.nested(s.Body)
	case *Mixin:
		p.line("%s", mixinString(s))
	case *UsingParams:
		p.line("using params %s;", s.Name)
	case *ShaderSourceDeclaration:
		p.line("ShaderSource %s = %s;", s.Name, exprString(s.Value))
	default:
		panic(fmt.Sprintf("syntax.Print: unexpected statement %T", s))
	}
}

func simpleString(s Stmt) string {
	switch s := s.(type) {
	case *Assign:
		return fmt.Sprintf("%s %s %s", s.Target.Name, s.Op, exprString(s.Value))
	case *AssignChain:
		return fmt.Sprintf("%s %s %s", exprString(s.Target), s.Op, exprString(s.Value))
	case *ExpressionStatement:
		return exprString(s.X)
	default:
		panic(fmt.Sprintf("syntax.Print: %T is not a simple statement", s))
	}
}

func mixinString(m *Mixin) string {
	var sb strings.Builder
	sb.WriteString("mixin")
	switch m.Kind {
	case MixinDefault:
	case MixinComposeAdd:
		sb.WriteString(" compose")
	default:
		sb.WriteString(" " + m.Kind.String())
	}
	if m.Name != "" {
		op := "="
		if m.Kind == MixinComposeAdd {
			op = "+="
		}
		fmt.Fprintf(&sb, " %s %s", m.Name, op)
	}
	if m.Value != nil {
		sb.WriteString(" " + exprString(m.Value))
	}
	sb.WriteString(";")
	return sb.String()
}

func modifierString(m Modifiers) string {
	var sb strings.Builder
	for _, w := range modifierWords {
		if m.Has(w.mod) {
			sb.WriteString(w.word)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func variableString(v *VariableDecl) string {
	var sb strings.Builder
	sb.WriteString(modifierString(v.Modifiers))
	sb.WriteString(typeString(v.Type))
	sb.WriteString(" " + v.Name)
	if v.ArraySize != nil {
		sb.WriteString("[" + exprString(v.ArraySize) + "]")
	}
	if v.Semantic != "" {
		sb.WriteString(" : " + v.Semantic)
	}
	if v.Value != nil {
		sb.WriteString(" = " + exprString(v.Value))
	}
	sb.WriteString(";")
	return sb.String()
}

func paramString(p *Param) string {
	s := typeString(p.Type) + " " + p.Name
	if p.Qualifier != "" {
		s = p.Qualifier + " " + s
	}
	if p.Semantic != "" {
		s += " : " + p.Semantic
	}
	return s
}

func typeString(t *TypeName) string {
	if t == nil {
		return "void"
	}
	s := t.Name
	if len(t.Args) > 0 {
		s += "<" + strings.Join(t.Args, ", ") + ">"
	}
	if t.ArraySize != nil {
		s += "[" + exprString(t.ArraySize) + "]"
	}
	return s
}

func exprString(e Expr) string {
	switch e := e.(type) {
	case *Operation:
		return exprString(e.Left) + " " + e.Op + " " + exprString(e.Right)
	case *Unary:
		x := exprString(e.X)
		if e.Postfix {
			return x + e.Op
		}
		// Keep "- -x" from turning into "--x".
		if strings.HasPrefix(x, "-") || strings.HasPrefix(x, "+") {
			return e.Op + " " + x
		}
		return e.Op + x
	case *Ternary:
		return exprString(e.Cond) + " ? " + exprString(e.Then) + " : " + exprString(e.Else)
	case *MethodCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprString(a)
		}
		call := e.Name + "(" + strings.Join(args, ", ") + ")"
		if e.Receiver != nil {
			return exprString(e.Receiver) + "." + call
		}
		return call
	case *Number:
		return e.Text
	case *Bool:
		if e.Value {
			return "true"
		}
		return "false"
	case *VariableName:
		return e.Name
	case *ChainAccessor:
		return exprString(e.X) + "." + e.Field
	case *ArrayAccessor:
		return exprString(e.X) + "[" + exprString(e.Index) + "]"
	case *Paren:
		return "(" + exprString(e.X) + ")"
	default:
		panic(fmt.Sprintf("syntax.Print: unexpected expression %T", e))
	}
}
