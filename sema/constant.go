package sema

import (
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/syntax"
)

// IsNumericLiteral reports whether e is a number, possibly signed or
// parenthesized. Such literals adapt to the type expected by their context.
func IsNumericLiteral(e syntax.Expr) bool {
	switch e := e.(type) {
	case *syntax.Number:
		return true
	case *syntax.Paren:
		return IsNumericLiteral(e.X)
	case *syntax.Unary:
		return !e.Postfix && (e.Op == "-" || e.Op == "+") && IsNumericLiteral(e.X)
	}
	return false
}

// IsConstantExpr reports whether e can be evaluated without reading any
// variable.
func IsConstantExpr(e syntax.Expr) bool {
	switch e := e.(type) {
	case *syntax.Number, *syntax.Bool:
		return true
	case *syntax.Paren:
		return IsConstantExpr(e.X)
	case *syntax.Unary:
		return !e.Postfix && e.Op != "++" && e.Op != "--" && IsConstantExpr(e.X)
	case *syntax.Operation:
		return IsConstantExpr(e.Left) && IsConstantExpr(e.Right)
	case *syntax.Ternary:
		return IsConstantExpr(e.Cond) && IsConstantExpr(e.Then) && IsConstantExpr(e.Else)
	case *syntax.MethodCall:
		if e.Receiver != nil || BuiltinType(e.Name, nil) == nil {
			return false
		}
		for _, a := range e.Args {
			if !IsConstantExpr(a) {
				return false
			}
		}
		return true
	}
	return false
}

// ConstantInt evaluates an integer constant expression built from integer
// literals, parentheses and arithmetic.
func ConstantInt(e syntax.Expr) (int64, bool) {
	switch e := e.(type) {
	case *syntax.Number:
		t, ok := LiteralType(e.Text)
		if !ok || t.Scalar.Kind == KindFloat {
			return 0, false
		}
		v, err := ParseInt(e.Text)
		return v, err == nil
	case *syntax.Paren:
		return ConstantInt(e.X)
	case *syntax.Unary:
		v, ok := ConstantInt(e.X)
		switch {
		case !ok || e.Postfix:
			return 0, false
		case e.Op == "-":
			return -v, true
		case e.Op == "+":
			return v, true
		}
	case *syntax.Operation:
		l, ok1 := ConstantInt(e.Left)
		r, ok2 := ConstantInt(e.Right)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch e.Op {
		case "+":
			return l + r, true
		case "-":
			return l - r, true
		case "*":
			return l * r, true
		case "/":
			if r != 0 {
				return l / r, true
			}
		case "%":
			if r != 0 {
				return l % r, true
			}
		case "<<":
			return l << uint(r), true
		}
	}
	return 0, false
}

// ParseInt parses an integer literal with an optional u/l suffix.
func ParseInt(text string) (int64, error) {
	s := strings.TrimRight(strings.ToLower(text), "ul")
	v, err := strconv.ParseUint(s, 0, 64)
	return int64(v), err
}

// ParseFloat parses a floating point literal with an optional f/h/d/lf
// suffix.
func ParseFloat(text string) (float64, error) {
	s := strings.ToLower(text)
	s = strings.TrimSuffix(s, "lf")
	s = strings.TrimRight(s, "fhd")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return strconv.ParseFloat(s, 64)
}
