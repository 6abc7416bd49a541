package sema

import (
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

func (c *Checker) block(b *syntax.Block) {
	c.table.Push()
	for _, s := range b.Stmts {
		c.stmt(s)
	}
	c.table.Pop()
}

// scoped checks a statement that introduces its own scope even when it is
// not a block, such as an if branch or loop body.
func (c *Checker) scoped(s syntax.Stmt) {
	if b, ok := s.(*syntax.Block); ok {
		c.block(b)
		return
	}
	c.table.Push()
	c.stmt(s)
	c.table.Pop()
}

func (c *Checker) stmt(s syntax.Stmt) {
	switch s := s.(type) {
	case *syntax.Block:
		c.block(s)
	case *syntax.VariableDecl:
		c.local(s)
	case *syntax.Assign:
		c.assign(s.Target, s.Op, s.Value)
	case *syntax.AssignChain:
		c.assign(s.Target, s.Op, s.Value)
	case *syntax.ExpressionStatement:
		c.expr(s.X)
	case *syntax.Return:
		c.ret(s)
	case *syntax.If:
		c.condition(s.Cond)
		c.scoped(s.Then)
		if s.Else != nil {
			c.scoped(s.Else)
		}
	case *syntax.For:
		c.table.Push()
		if s.Init != nil {
			c.stmt(s.Init)
		}
		if s.Cond != nil {
			c.condition(s.Cond)
		}
		if s.Post != nil {
			c.stmt(s.Post)
		}
		c.loops++
		c.scoped(s.Body)
		c.loops--
		c.table.Pop()
	case *syntax.While:
		c.condition(s.Cond)
		c.loops++
		c.scoped(s.Body)
		c.loops--
	case *syntax.Flow:
		if s.Kind != syntax.FlowDiscard && c.loops == 0 {
			c.errorf(s.Span, diag.CodeBreakOutsideLoop, "%s outside of a loop", s.Kind)
		}
	default:
		c.errorf(s.Pos(), diag.CodeUnsupportedFeature, "statement not allowed in a method body")
	}
}

func (c *Checker) local(d *syntax.VariableDecl) {
	if d.Modifiers.Has(syntax.ModStream) || d.Modifiers.Has(syntax.ModStage) {
		c.errorf(d.Span, diag.CodeUnsupportedFeature, "local %s cannot be a stream or stage member", d.Name)
	}
	t := c.resolveVariableType(d)
	if d.Value != nil {
		c.TypeCheck(d.Value, t)
	} else if d.Modifiers.Has(syntax.ModConst) {
		c.errorf(d.Span, diag.CodeTypeMismatch, "const %s requires an initializer", d.Name)
	}
	sym := &Symbol{Name: d.Name, Kind: SymLocal, Type: t, Decl: d, Const: d.Modifiers.Has(syntax.ModConst)}
	if prev, ok := c.table.Declare(sym); !ok {
		c.errorf(d.Span, diag.CodeRedeclared, "%s redeclared; it is already a %s", d.Name, prev.Kind)
		return
	}
	c.info.Defs[d] = sym
}

func (c *Checker) assign(target syntax.Expr, op string, value syntax.Expr) {
	compound := compoundOp(op)
	t := c.lvalue(target, compound != "")
	if t.IsInvalid() {
		c.expr(value)
		return
	}
	if compound == "" {
		c.TypeCheck(value, t)
		return
	}
	// a op= b checks as a = a op b.
	vt := c.TypeCheck(value, nil)
	if IsNumericLiteral(value) {
		vt = c.literal(value, t)
	}
	if vt.IsInvalid() {
		return
	}
	ok := t.IsNumeric() && vt.Equal(t)
	switch compound {
	case "&", "|", "^", "<<", ">>":
		ok = ok && t.Scalar.Kind != KindFloat && t.Quantifier != Matrix
	case "+", "-", "*", "/", "%":
	default:
		ok = false
	}
	if !ok {
		c.errorf(value.Pos(), diag.CodeInvalidOperands, "invalid operands %s %s %s", t, op, vt)
	}
}

func (c *Checker) ret(s *syntax.Return) {
	if c.method == nil {
		return
	}
	result := c.method.Result
	switch {
	case s.Value == nil && result != VoidType && !result.IsInvalid():
		c.errorf(s.Span, diag.CodeTypeMismatch, "%s must return a %s value", c.method.Name, result)
	case s.Value != nil && result == VoidType:
		c.expr(s.Value)
		c.errorf(s.Value.Pos(), diag.CodeTypeMismatch, "void method %s cannot return a value", c.method.Name)
	case s.Value != nil:
		c.TypeCheck(s.Value, result)
	}
}
