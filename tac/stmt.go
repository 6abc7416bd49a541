package tac

import (
	"strings"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

func (l *lowerer) block(b *syntax.Block) {
	for _, s := range b.Stmts {
		if l.err != nil {
			return
		}
		l.stmt(s)
	}
}

func (l *lowerer) stmt(s syntax.Stmt) {
	switch s := s.(type) {
	case *syntax.Block:
		l.block(s)
	case *syntax.VariableDecl:
		l.local(s)
	case *syntax.Assign:
		l.assign(s.Target, s.Op, s.Value)
	case *syntax.AssignChain:
		l.assign(s.Target, s.Op, s.Value)
	case *syntax.ExpressionStatement:
		l.expr(s.X)
	case *syntax.Return:
		ret := &Return{}
		if s.Value != nil {
			ret.Value = l.operand(s.Value, l.fn.Result)
		}
		l.emit(ret)
	case *syntax.If:
		l.ifStmt(s)
	case *syntax.For:
		if s.Init != nil {
			l.stmt(s.Init)
		}
		l.loop(s.Cond, s.Post, s.Body)
	case *syntax.While:
		l.loop(s.Cond, nil, s.Body)
	case *syntax.Flow:
		switch s.Kind {
		case syntax.FlowDiscard:
			l.emit(&Discard{})
		case syntax.FlowBreak:
			l.emit(&Jump{Target: l.loops[len(l.loops)-1].merge})
		case syntax.FlowContinue:
			l.emit(&Jump{Target: l.loops[len(l.loops)-1].cont})
		}
	default:
		l.fail(s.Pos(), diag.CodeUnsupportedLowering, "cannot lower statement")
	}
}

func (l *lowerer) local(d *syntax.VariableDecl) {
	sym := l.info.Defs[d]
	if sym == nil {
		l.fail(d.Span, diag.CodeUnsupportedLowering, "unresolved local %s", d.Name)
		return
	}
	if !sym.Type.Resolved() {
		l.fail(d.Span, diag.CodeUnresolvedArray, "local %s has unresolved type %s", d.Name, sym.Type)
		return
	}
	value := ""
	if d.Value != nil {
		value = l.operand(d.Value, sym.Type)
	}
	name := l.unique(d.Name)
	l.names[sym] = name
	if sym.Mutable || l.vars[sym] || d.Value == nil {
		l.vars[sym] = true
		l.emit(&Declare{Name: name, Type: sym.Type})
		if value != "" {
			l.emit(&Copy{Name: name, Type: sym.Type, Source: value})
		}
		return
	}
	l.emit(&Copy{Name: name, Type: sym.Type, Source: value, Declare: true})
}

// assign lowers target op value. A compound assignment reads the target,
// combines and writes it back.
func (l *lowerer) assign(target syntax.Expr, op string, value syntax.Expr) {
	t := l.info.TypeOf(target)
	if op == "=" {
		l.store(target, l.operand(value, t))
		return
	}
	old := l.load(target)
	v := l.operand(value, t)
	res := l.emit(&Assign{Name: l.newTemp(), Type: t, Op: strings.TrimSuffix(op, "="), Left: old, Right: v, Operand: t})
	l.store(target, res)
}

func (l *lowerer) ifStmt(s *syntax.If) {
	cond := l.expr(s.Cond)
	then, merge := l.newTemp(), l.newTemp()
	els := merge
	if s.Else != nil {
		els = l.newTemp()
	}
	l.emit(&Branch{Cond: cond, True: then, False: els, Merge: merge})
	l.label(then)
	l.stmt(s.Then)
	l.jump(merge)
	if s.Else != nil {
		l.label(els)
		l.stmt(s.Else)
		l.jump(merge)
	}
	l.label(merge)
}

// loop lowers a structured loop: a header holding the condition, the body,
// a continue block holding post, and the merge block.
func (l *lowerer) loop(cond syntax.Expr, post syntax.Stmt, body syntax.Stmt) {
	header, start, cont, merge := l.newTemp(), l.newTemp(), l.newTemp(), l.newTemp()
	l.jump(header)
	l.label(header)
	if cond != nil {
		c := l.expr(cond)
		l.emit(&LoopMerge{Merge: merge, Continue: cont})
		l.emit(&Branch{Cond: c, True: start, False: merge})
	} else {
		l.emit(&LoopMerge{Merge: merge, Continue: cont})
		l.emit(&Jump{Target: start})
	}

	l.loops = append(l.loops, loop{merge: merge, cont: cont})
	l.label(start)
	l.stmt(body)
	l.jump(cont)
	l.loops = l.loops[:len(l.loops)-1]

	l.label(cont)
	if post != nil {
		l.stmt(post)
	}
	l.jump(header)
	l.label(merge)
}

// jump ends the current block with a branch to target unless it is
// already terminated.
func (l *lowerer) jump(target string) {
	if l.open {
		l.emit(&Jump{Target: target})
	}
}

// String renders r for debugging and tests.
func String(r Register) string {
	var sb strings.Builder
	switch r := r.(type) {
	case *Label:
		sb.WriteString(r.Name + ":")
	case *Declare:
		sb.WriteString("var " + r.Name + " " + r.Type.String())
	case *Copy:
		if r.Declare {
			sb.WriteString(r.Name + " := " + r.Source)
		} else {
			sb.WriteString("*" + r.Name + " = " + r.Source)
		}
	case *Assign:
		sb.WriteString(r.Name + " = " + r.Left + " " + r.Op + " " + r.Right)
	case *Constant:
		if r.IsComposite() {
			sb.WriteString(r.Name + " = " + r.Type.String() + "(" + strings.Join(r.Args, ", ") + ")")
		} else {
			sb.WriteString(r.Name + " = const " + r.Type.String() + " " + hex(r.Bits))
		}
	case *ChainRegister:
		sb.WriteString(r.Name + " = &" + r.Base)
		if r.Stream != "" {
			sb.WriteString("." + r.Stream)
		}
		for _, ix := range r.Path {
			if ix.Reg != "" {
				sb.WriteString("[" + ix.Reg + "]")
			} else {
				sb.WriteString("[" + itoa(ix.Const) + "]")
			}
		}
	case *Load:
		sb.WriteString(r.Name + " = *" + r.Source)
	case *Extract:
		sb.WriteString(r.Name + " = " + r.Source)
		for _, i := range r.Path {
			sb.WriteString("." + itoa(i))
		}
	case *Shuffle:
		sb.WriteString(r.Name + " = shuffle " + r.First + ", " + r.Second)
		for _, c := range r.Components {
			sb.WriteString(" " + itoa(c))
		}
	case *Unary:
		sb.WriteString(r.Name + " = " + r.Op + r.Source)
	case *VectorIndex:
		sb.WriteString(r.Name + " = " + r.Base + "[" + r.Index + "]")
	case *Call:
		fn := r.Function
		if fn == "" {
			fn = r.Intrinsic
		}
		sb.WriteString(r.Name + " = " + fn + "(" + strings.Join(r.Args, ", ") + ")")
	case *Convert:
		sb.WriteString(r.Name + " = " + r.Type.String() + "(" + r.Source + ")")
	case *Select:
		sb.WriteString(r.Name + " = " + r.Cond + " ? " + r.True + " : " + r.False)
	case *Jump:
		sb.WriteString("jump " + r.Target)
	case *Branch:
		sb.WriteString("branch " + r.Cond + " " + r.True + " " + r.False)
		if r.Merge != "" {
			sb.WriteString(" merge " + r.Merge)
		}
	case *LoopMerge:
		sb.WriteString("loop merge " + r.Merge + " continue " + r.Continue)
	case *Return:
		sb.WriteString("return")
		if r.Value != "" {
			sb.WriteString(" " + r.Value)
		}
	case *Discard:
		sb.WriteString("discard")
	case *EmitVertex:
		sb.WriteString("emit")
	}
	return sb.String()
}

// Dump renders every register of f, one per line.
func Dump(f *Function) string {
	var sb strings.Builder
	sb.WriteString(f.Name + ":\n")
	for _, r := range f.Registers {
		if _, ok := r.(*Label); !ok {
			sb.WriteString("  ")
		}
		sb.WriteString(String(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}
