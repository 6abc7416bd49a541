package sema

import (
	"strings"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

// TypeCheck checks e in a context expecting the given type, or no
// particular type when expected is nil, and returns the type of e.
//
// Numeric literals convert to the expected element type and broadcast to
// vectors and matrices; Info.Types then records the converted scalar type.
// Any other mismatch is an error: there are no implicit conversions between
// variables.
func (c *Checker) TypeCheck(e syntax.Expr, expected *SymbolType) *SymbolType {
	if expected != nil && IsNumericLiteral(e) && !expected.IsInvalid() {
		return c.literal(e, expected)
	}
	t := c.expr(e)
	if expected != nil && !t.IsInvalid() && !expected.IsInvalid() && !t.Equal(expected) {
		c.errorf(e.Pos(), diag.CodeTypeMismatch, "cannot use %s value as %s", t, expected)
		return expected
	}
	return t
}

// literal converts a numeric literal to the element type of expected.
func (c *Checker) literal(e syntax.Expr, expected *SymbolType) *SymbolType {
	own := c.expr(e)
	if own.IsInvalid() {
		return expected
	}
	if !expected.IsNumeric() {
		c.errorf(e.Pos(), diag.CodeTypeMismatch, "cannot use %s literal as %s", own, expected)
		return expected
	}
	elem := expected.Element()
	if own.Scalar.Kind == KindFloat && elem.Scalar.Kind != KindFloat {
		c.errorf(e.Pos(), diag.CodeTypeMismatch, "cannot use floating point literal as %s", expected)
		return expected
	}
	if own.Scalar.Kind == KindUint && elem.Scalar.Kind == KindSint && own.Scalar.Width > elem.Scalar.Width {
		c.errorf(e.Pos(), diag.CodeTypeMismatch, "literal does not fit %s", expected)
	}
	for x := e; ; {
		c.info.Types[x] = elem
		switch n := x.(type) {
		case *syntax.Paren:
			x = n.X
			continue
		case *syntax.Unary:
			x = n.X
			continue
		}
		break
	}
	return expected
}

// unify checks operands that must share one type. Literals take the type of
// the first other operand; when all operands are literals the widest
// literal type wins, float over integers. floatOnly makes all-literal
// operand lists float.
func (c *Checker) unify(args []syntax.Expr, floatOnly bool) ([]*SymbolType, *SymbolType) {
	types := make([]*SymbolType, len(args))
	var target *SymbolType
	for i, a := range args {
		if !IsNumericLiteral(a) {
			types[i] = c.expr(a)
			if target == nil {
				target = types[i]
			}
		}
	}
	if target == nil {
		target = Int
		for _, a := range args {
			if lt := c.expr(a); !lt.IsInvalid() && rank(lt) > rank(target) {
				target = lt
			}
		}
		if floatOnly && target.Scalar.Kind != KindFloat {
			target = Float
		}
	}
	for i, a := range args {
		if types[i] == nil {
			if target.IsInvalid() {
				types[i] = c.expr(a)
			} else {
				types[i] = c.literal(a, target)
			}
			continue
		}
		if !types[i].IsInvalid() && !target.IsInvalid() && !types[i].Equal(target) {
			c.errorf(a.Pos(), diag.CodeInvalidOperands, "mismatched operand types %s and %s", target, types[i])
			types[i] = Invalid
		}
	}
	return types, target
}

func rank(t *SymbolType) int {
	r := int(t.Scalar.Width)
	if t.Scalar.Kind == KindFloat {
		r += 16
	}
	return r
}

func (c *Checker) expr(e syntax.Expr) *SymbolType {
	t := c.exprType(e)
	if t == nil {
		t = Invalid
	}
	if _, done := c.info.Types[e]; !done || !IsNumericLiteral(e) {
		c.info.Types[e] = t
	}
	return t
}

func (c *Checker) exprType(e syntax.Expr) *SymbolType {
	switch e := e.(type) {
	case *syntax.Number:
		t, ok := LiteralType(e.Text)
		if !ok {
			c.errorf(e.Span, diag.CodeTypeMismatch, "invalid numeric literal %s", e.Text)
			return Invalid
		}
		return t
	case *syntax.Bool:
		return Bool
	case *syntax.Paren:
		return c.expr(e.X)
	case *syntax.VariableName:
		sym := c.table.Lookup(e.Name)
		if sym == nil {
			c.errorf(e.Span, diag.CodeUndeclared, "undeclared name %s", e.Name)
			return Invalid
		}
		c.info.Uses[e] = sym
		return sym.Type
	case *syntax.Unary:
		return c.unary(e)
	case *syntax.Operation:
		return c.binary(e)
	case *syntax.Ternary:
		c.condition(e.Cond)
		_, t := c.unify([]syntax.Expr{e.Then, e.Else}, false)
		return t
	case *syntax.ChainAccessor:
		return c.member(e)
	case *syntax.ArrayAccessor:
		return c.index(e)
	case *syntax.MethodCall:
		return c.call(e)
	}
	c.errorf(e.Pos(), diag.CodeUnsupportedFeature, "unsupported expression")
	return Invalid
}

func (c *Checker) condition(e syntax.Expr) {
	t := c.expr(e)
	if !t.IsInvalid() && !(t.Quantifier == Scalar && t.Scalar.Kind == KindBool) {
		c.errorf(e.Pos(), diag.CodeConditionNotBool, "condition must be bool, not %s", t)
	}
}

func (c *Checker) unary(e *syntax.Unary) *SymbolType {
	if e.Op == "++" || e.Op == "--" {
		t := c.lvalue(e.X, true)
		if !t.IsInvalid() && (!t.IsNumeric() || t.Quantifier == Matrix) {
			c.errorf(e.Span, diag.CodeInvalidOperands, "operator %s requires a numeric scalar or vector, not %s", e.Op, t)
			return Invalid
		}
		return t
	}
	t := c.expr(e.X)
	if t.IsInvalid() {
		return t
	}
	switch e.Op {
	case "-", "+":
		if !t.IsNumeric() {
			break
		}
		if e.Op == "-" && t.Scalar.Kind == KindUint {
			c.errorf(e.Span, diag.CodeInvalidOperands, "cannot negate unsigned %s", t)
		}
		return t
	case "!":
		if t.IsBool() {
			return t
		}
	case "~":
		if t.IsNumeric() && t.Scalar.Kind != KindFloat && t.Quantifier != Matrix {
			return t
		}
	}
	c.errorf(e.Span, diag.CodeInvalidOperands, "invalid operand %s for operator %s", t, e.Op)
	return Invalid
}

func (c *Checker) binary(e *syntax.Operation) *SymbolType {
	types, t := c.unify([]syntax.Expr{e.Left, e.Right}, false)
	if t.IsInvalid() || types[0].IsInvalid() || types[1].IsInvalid() {
		return Invalid
	}
	ok := false
	result := t
	switch e.Op {
	case "+", "-", "*", "/", "%":
		ok = t.IsNumeric()
	case "<", ">", "<=", ">=":
		ok = t.IsNumeric() && t.Quantifier != Matrix
		result = t.WithScalar(Bool)
	case "==", "!=":
		ok = t.Quantifier == Scalar || t.Quantifier == Vector
		result = t.WithScalar(Bool)
	case "&&", "||":
		ok = t.IsBool()
	case "&", "|", "^", "<<", ">>":
		ok = t.IsNumeric() && t.Scalar.Kind != KindFloat && t.Quantifier != Matrix
	}
	if !ok {
		c.errorf(e.Span, diag.CodeInvalidOperands, "invalid operands %s for operator %s", t, e.Op)
		return Invalid
	}
	return result
}

// member resolves X.Field: a stream, a struct field, a vector swizzle or a
// matrix element selection.
func (c *Checker) member(e *syntax.ChainAccessor) *SymbolType {
	if idx, t, ok := c.streamField(e); ok {
		if idx >= 0 && c.method != nil {
			c.method.Reads = addName(c.method.Reads, e.Field)
		}
		return t
	}
	t := c.expr(e.X)
	if t.IsInvalid() {
		return t
	}
	switch t.Quantifier {
	case Struct:
		i := t.Field(e.Field)
		if i < 0 {
			c.errorf(e.Span, diag.CodeInvalidAccessor, "%s has no field %s", t, e.Field)
			return Invalid
		}
		c.info.Accessors[e] = &Accessor{Kind: AccessField, Index: i}
		return t.Fields[i].Type
	case Scalar, Vector:
		comps, ok := VectorSwizzle(t, e.Field)
		if !ok {
			c.errorf(e.Span, diag.CodeInvalidSwizzle, "invalid swizzle %s on %s", e.Field, t)
			return Invalid
		}
		c.info.Accessors[e] = &Accessor{Kind: AccessSwizzle, Components: comps}
		return swizzleType(t, len(comps))
	case Matrix:
		elems, ok := MatrixSwizzle(t, e.Field)
		if !ok {
			c.errorf(e.Span, diag.CodeInvalidSwizzle, "invalid matrix swizzle %s on %s", e.Field, t)
			return Invalid
		}
		c.info.Accessors[e] = &Accessor{Kind: AccessMatrix, Elements: elems}
		return swizzleType(t, len(elems))
	}
	c.errorf(e.Span, diag.CodeInvalidAccessor, "%s has no members", t)
	return Invalid
}

// streamField resolves streams.Name. It reports ok for any access on the
// streams variable; idx is -1 when the stream is unknown.
func (c *Checker) streamField(e *syntax.ChainAccessor) (int, *SymbolType, bool) {
	v, ok := e.X.(*syntax.VariableName)
	if !ok {
		return 0, nil, false
	}
	sym := c.table.Lookup(v.Name)
	if sym == nil || sym.Kind != SymStreams {
		return 0, nil, false
	}
	c.info.Uses[v] = sym
	c.info.Types[v] = sym.Type
	i := sym.Type.Field(e.Field)
	if i < 0 {
		c.errorf(e.Span, diag.CodeUnknownStream, "unknown stream %s", e.Field)
		return -1, Invalid, true
	}
	c.info.Accessors[e] = &Accessor{Kind: AccessStream, Index: i}
	return i, sym.Type.Fields[i].Type, true
}

func (c *Checker) index(e *syntax.ArrayAccessor) *SymbolType {
	t := c.expr(e.X)
	it := c.expr(e.Index)
	if !it.IsInvalid() && (it.Quantifier != Scalar || (it.Scalar.Kind != KindSint && it.Scalar.Kind != KindUint)) {
		c.errorf(e.Index.Pos(), diag.CodeNonScalarIndex, "index must be an integer scalar, not %s", it)
	}
	if t.IsInvalid() {
		return t
	}
	var n int
	var elem *SymbolType
	switch t.Quantifier {
	case Array:
		n, elem = t.Size[0], t.Elem
	case Vector:
		n, elem = t.Size[0], t.Element()
	case Matrix:
		n, elem = t.Size[0], VectorOf(t.Element(), t.Size[1])
	default:
		c.errorf(e.Span, diag.CodeInvalidAccessor, "cannot index %s", t)
		return Invalid
	}
	if k, ok := ConstantInt(e.Index); ok && n > 0 && (k < 0 || k >= int64(n)) {
		c.errorf(e.Index.Pos(), diag.CodeInvalidAccessor, "index %d out of range for %s", k, t)
	}
	return elem
}

// lvalue checks an assignment target and marks its root variable as
// mutated. Stream targets record a write of the stream field and, unless
// the whole stream is replaced, a read as well.
func (c *Checker) lvalue(target syntax.Expr, readToo bool) *SymbolType {
	var t *SymbolType
	if ca, ok := target.(*syntax.ChainAccessor); ok && !readToo {
		if idx, st, ok := c.streamField(ca); ok {
			c.info.Types[target] = st
			if idx >= 0 && c.method != nil {
				c.method.Writes = addName(c.method.Writes, ca.Field)
			}
			return st
		}
	}
	t = c.expr(target)
	if t.IsInvalid() {
		return t
	}
	root, field := c.root(target)
	if root == nil {
		c.errorf(target.Pos(), diag.CodeNotAssignable, "cannot assign to expression")
		return Invalid
	}
	switch {
	case root.Kind == SymUniform:
		c.errorf(target.Pos(), diag.CodeNotAssignable, "cannot assign to uniform %s", root.Name)
		return Invalid
	case root.Const:
		c.errorf(target.Pos(), diag.CodeNotAssignable, "cannot assign to constant %s", root.Name)
		return Invalid
	case root.Kind == SymStreams:
		if field == "" {
			c.errorf(target.Pos(), diag.CodeNotAssignable, "cannot assign to streams")
			return Invalid
		}
		if c.method != nil {
			c.method.Writes = addName(c.method.Writes, field)
		}
	}
	if !c.writableSwizzles(target) {
		return Invalid
	}
	root.Mutable = true
	return t
}

// root finds the variable an access chain starts from, and the stream
// field when it starts from streams.
func (c *Checker) root(e syntax.Expr) (*Symbol, string) {
	field := ""
	for {
		switch n := e.(type) {
		case *syntax.Paren:
			e = n.X
		case *syntax.ChainAccessor:
			if v, ok := n.X.(*syntax.VariableName); ok {
				if sym := c.info.Uses[v]; sym != nil && sym.Kind == SymStreams {
					field = n.Field
				}
			}
			e = n.X
		case *syntax.ArrayAccessor:
			e = n.X
		case *syntax.VariableName:
			return c.info.Uses[n], field
		default:
			return nil, ""
		}
	}
}

func (c *Checker) writableSwizzles(e syntax.Expr) bool {
	for {
		switch n := e.(type) {
		case *syntax.Paren:
			e = n.X
		case *syntax.ArrayAccessor:
			e = n.X
		case *syntax.ChainAccessor:
			if a := c.info.Accessors[n]; a != nil {
				switch a.Kind {
				case AccessSwizzle:
					if repeats(a.Components) {
						c.errorf(n.Span, diag.CodeInvalidSwizzle, "swizzle %s repeats a component", n.Field)
						return false
					}
				case AccessMatrix:
					if len(a.Elements) > 1 {
						c.errorf(n.Span, diag.CodeUnsupportedFeature, "cannot assign to matrix swizzle %s", n.Field)
						return false
					}
				}
			}
			e = n.X
		default:
			return true
		}
	}
}

func repeats(comps []int) bool {
	seen := 0
	for _, c := range comps {
		if seen&(1<<c) != 0 {
			return true
		}
		seen |= 1 << c
	}
	return false
}

// compoundOp maps "+=" to "+". It returns "" for plain assignment.
func compoundOp(op string) string {
	return strings.TrimSuffix(op, "=")
}
