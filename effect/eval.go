package effect

import (
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

// eval evaluates a condition or macro value over the parameters in scope.
func (ev *evaluator) eval(e syntax.Expr) (Value, bool) {
	switch e := e.(type) {
	case *syntax.Bool:
		return Bool(e.Value), true
	case *syntax.Number:
		v := ParseValue(e.Text)
		if v.Kind == KindString {
			break
		}
		return v, true
	case *syntax.Paren:
		return ev.eval(e.X)
	case *syntax.VariableName, *syntax.ChainAccessor:
		name, _ := dotted(e)
		if v, ok := ev.scope[name]; ok {
			return v, true
		}
		ev.diags.Addf(e.Pos(), diag.CodeUnknownParams, "unknown parameter %s", name)
		return Value{}, false
	case *syntax.Unary:
		x, ok := ev.eval(e.X)
		if !ok {
			return x, false
		}
		switch {
		case e.Op == "!":
			return Bool(!x.Truth()), true
		case e.Op == "-" && x.Kind == KindInt:
			return Int(-x.Int), true
		case e.Op == "-" && x.Kind == KindFloat:
			return Float(-x.Float), true
		case e.Op == "+" && (x.Kind == KindInt || x.Kind == KindFloat):
			return x, true
		}
	case *syntax.Ternary:
		c, ok := ev.eval(e.Cond)
		if !ok {
			return c, false
		}
		if c.Truth() {
			return ev.eval(e.Then)
		}
		return ev.eval(e.Else)
	case *syntax.Operation:
		return ev.binary(e)
	}
	ev.diags.Add(e.Pos(), diag.CodeBadEffectExpr, "unsupported expression in effect")
	return Value{}, false
}

func (ev *evaluator) binary(e *syntax.Operation) (Value, bool) {
	l, ok := ev.eval(e.Left)
	if !ok {
		return l, false
	}
	switch e.Op {
	case "&&":
		if !l.Truth() {
			return Bool(false), true
		}
		r, ok := ev.eval(e.Right)
		return Bool(r.Truth()), ok
	case "||":
		if l.Truth() {
			return Bool(true), true
		}
		r, ok := ev.eval(e.Right)
		return Bool(r.Truth()), ok
	}
	r, ok := ev.eval(e.Right)
	if !ok {
		return r, false
	}
	switch e.Op {
	case "==":
		return Bool(l.Equal(r)), true
	case "!=":
		return Bool(!l.Equal(r)), true
	}
	if l.Kind == KindString || r.Kind == KindString || l.Kind == KindBool || r.Kind == KindBool {
		ev.diags.Addf(e.Span, diag.CodeBadEffectExpr, "operator %s requires numbers", e.Op)
		return Value{}, false
	}
	if l.Kind == KindInt && r.Kind == KindInt {
		a, b := l.Int, r.Int
		switch e.Op {
		case "+":
			return Int(a + b), true
		case "-":
			return Int(a - b), true
		case "*":
			return Int(a * b), true
		case "/", "%":
			if b == 0 {
				ev.diags.Add(e.Span, diag.CodeBadEffectExpr, "division by zero")
				return Value{}, false
			}
			if e.Op == "/" {
				return Int(a / b), true
			}
			return Int(a % b), true
		}
	}
	a, b := l.float(), r.float()
	switch e.Op {
	case "<":
		return Bool(a < b), true
	case ">":
		return Bool(a > b), true
	case "<=":
		return Bool(a <= b), true
	case ">=":
		return Bool(a >= b), true
	case "+":
		return Float(a + b), true
	case "-":
		return Float(a - b), true
	case "*":
		return Float(a * b), true
	case "/":
		return Float(a / b), true
	}
	ev.diags.Addf(e.Span, diag.CodeBadEffectExpr, "unsupported operator %s in effect", e.Op)
	return Value{}, false
}
