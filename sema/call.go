package sema

import (
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

type signature uint8

const (
	// sigSame: operands share one numeric type, which is also the result.
	sigSame signature = iota
	// sigFloat: like sigSame, restricted to floating point.
	sigFloat
	// sigFloatVector: like sigFloat, restricted to vectors.
	sigFloatVector
	// sigReduce: operands share one float type; the result is its element.
	sigReduce
	sigCross
	sigMul
	sigBoolReduce
	sigEmit
)

type intrinsic struct {
	arity int
	sig   signature
}

// Intrinsics lists the callable built-in functions and their arities.
var intrinsics = map[string]intrinsic{
	"abs":        {1, sigSame},
	"sign":       {1, sigSame},
	"min":        {2, sigSame},
	"max":        {2, sigSame},
	"clamp":      {3, sigSame},
	"sqrt":       {1, sigFloat},
	"rsqrt":      {1, sigFloat},
	"sin":        {1, sigFloat},
	"cos":        {1, sigFloat},
	"tan":        {1, sigFloat},
	"asin":       {1, sigFloat},
	"acos":       {1, sigFloat},
	"atan":       {1, sigFloat},
	"atan2":      {2, sigFloat},
	"floor":      {1, sigFloat},
	"ceil":       {1, sigFloat},
	"frac":       {1, sigFloat},
	"round":      {1, sigFloat},
	"trunc":      {1, sigFloat},
	"exp":        {1, sigFloat},
	"exp2":       {1, sigFloat},
	"log":        {1, sigFloat},
	"log2":       {1, sigFloat},
	"pow":        {2, sigFloat},
	"fmod":       {2, sigFloat},
	"step":       {2, sigFloat},
	"lerp":       {3, sigFloat},
	"smoothstep": {3, sigFloat},
	"saturate":   {1, sigFloat},
	"ddx":        {1, sigFloat},
	"ddy":        {1, sigFloat},
	"normalize":  {1, sigFloatVector},
	"reflect":    {2, sigFloatVector},
	"dot":        {2, sigReduce},
	"length":     {1, sigReduce},
	"distance":   {2, sigReduce},
	"cross":      {2, sigCross},
	"mul":        {2, sigMul},
	"any":        {1, sigBoolReduce},
	"all":        {1, sigBoolReduce},
	"EmitVertex": {0, sigEmit},
}

// IsIntrinsic reports whether name is a built-in function.
func IsIntrinsic(name string) bool {
	_, ok := intrinsics[name]
	return ok
}

func (c *Checker) call(e *syntax.MethodCall) *SymbolType {
	if e.Receiver != nil {
		c.errorf(e.Span, diag.CodeUnsupportedFeature, "cannot call %s through %s", e.Name, syntax.Print(e.Receiver))
		for _, a := range e.Args {
			c.expr(a)
		}
		return Invalid
	}
	if m := c.info.Method(e.Name); m != nil {
		return c.callMethod(e, m)
	}
	if in, ok := intrinsics[e.Name]; ok {
		if len(e.Args) != in.arity {
			c.errorf(e.Span, diag.CodeArgumentCount, "%s expects %d arguments, got %d", e.Name, in.arity, len(e.Args))
			for _, a := range e.Args {
				c.expr(a)
			}
			return Invalid
		}
		t := c.intrinsic(e, in.sig)
		c.info.Calls[e] = &Call{Kind: CallIntrinsic, Type: t, Name: e.Name}
		return t
	}
	if t := c.table.LookupType(e.Name, nil); t != nil {
		return c.construct(e, t)
	}
	if sym := c.table.Lookup(e.Name); sym != nil {
		c.errorf(e.Span, diag.CodeNotCallable, "%s %s is not callable", sym.Kind, e.Name)
	} else {
		c.errorf(e.Span, diag.CodeUndeclared, "undeclared method %s", e.Name)
	}
	for _, a := range e.Args {
		c.expr(a)
	}
	return Invalid
}

func (c *Checker) callMethod(e *syntax.MethodCall, m *Method) *SymbolType {
	if len(e.Args) != len(m.Params) {
		c.errorf(e.Span, diag.CodeArgumentCount, "%s expects %d arguments, got %d", m.Name, len(m.Params), len(e.Args))
	}
	for i, a := range e.Args {
		if i < len(m.Params) {
			c.TypeCheck(a, m.Params[i].Type)
		} else {
			c.expr(a)
		}
	}
	if c.method != nil {
		c.method.addCall(m)
	}
	c.info.Calls[e] = &Call{Kind: CallMethod, Type: m.Result, Method: m}
	return m.Result
}

func (c *Checker) intrinsic(e *syntax.MethodCall, sig signature) *SymbolType {
	switch sig {
	case sigEmit:
		if c.method != nil {
			c.method.EmitsVertex = true
		}
		return VoidType
	case sigMul:
		return c.mul(e)
	case sigBoolReduce:
		t := c.expr(e.Args[0])
		if !t.IsInvalid() && !t.IsBool() {
			c.errorf(e.Span, diag.CodeInvalidOperands, "%s requires bool operands, not %s", e.Name, t)
		}
		return Bool
	}

	floatOnly := sig != sigSame
	types, t := c.unify(e.Args, floatOnly)
	for _, at := range types {
		if at.IsInvalid() {
			return Invalid
		}
	}
	if t.IsInvalid() {
		return t
	}
	ok := t.IsNumeric() && (!floatOnly || t.Scalar.Kind == KindFloat)
	switch sig {
	case sigFloatVector:
		ok = ok && t.Quantifier == Vector
	case sigReduce:
		ok = ok && t.Quantifier != Matrix
	case sigCross:
		ok = ok && t.Equal(VectorOf(t.Element(), 3))
	}
	if !ok {
		c.errorf(e.Span, diag.CodeInvalidOperands, "invalid operand type %s for %s", t, e.Name)
		return Invalid
	}
	if sig == sigReduce {
		return t.Element()
	}
	return t
}

// mul is the row-vector product: mul(v, M), mul(M, v) or mul(A, B).
func (c *Checker) mul(e *syntax.MethodCall) *SymbolType {
	a, b := e.Args[0], e.Args[1]
	if IsNumericLiteral(a) || IsNumericLiteral(b) {
		_, t := c.unify(e.Args, false)
		return t
	}
	x, y := c.expr(a), c.expr(b)
	if x.IsInvalid() || y.IsInvalid() {
		return Invalid
	}
	if !x.IsNumeric() || !y.IsNumeric() || x.Scalar != y.Scalar {
		c.errorf(e.Span, diag.CodeInvalidOperands, "cannot multiply %s by %s", x, y)
		return Invalid
	}
	switch {
	case x.Quantifier == Scalar:
		return y
	case y.Quantifier == Scalar:
		return x
	case x.Quantifier == Vector && y.Quantifier == Vector && x.Size[0] == y.Size[0]:
		return x.Element()
	case x.Quantifier == Vector && y.Quantifier == Matrix && x.Size[0] == y.Size[0]:
		return VectorOf(x.Element(), y.Size[1])
	case x.Quantifier == Matrix && y.Quantifier == Vector && x.Size[1] == y.Size[0]:
		return VectorOf(x.Element(), x.Size[0])
	case x.Quantifier == Matrix && y.Quantifier == Matrix && x.Size[1] == y.Size[0]:
		return MatrixOf(x.Element(), x.Size[0], y.Size[1])
	}
	c.errorf(e.Span, diag.CodeInvalidOperands, "cannot multiply %s by %s", x, y)
	return Invalid
}

// construct checks T(args): a conversion or splat for a single argument of
// matching shape, otherwise a component-wise constructor.
func (c *Checker) construct(e *syntax.MethodCall, t *SymbolType) *SymbolType {
	switch t.Quantifier {
	case Scalar, Vector, Matrix:
	default:
		c.errorf(e.Span, diag.CodeNotCallable, "cannot construct %s", t)
		for _, a := range e.Args {
			c.expr(a)
		}
		return Invalid
	}
	if len(e.Args) == 1 {
		a := e.Args[0]
		if IsNumericLiteral(a) {
			c.literal(a, t.Element())
			c.info.Calls[e] = &Call{Kind: CallConvert, Type: t}
			return t
		}
		at := c.expr(a)
		if at.IsInvalid() {
			return t
		}
		sameShape := at.Quantifier == t.Quantifier && len(at.Size) == len(t.Size) && at.Components() == t.Components()
		if (at.Quantifier == Scalar || sameShape) && at.Components() > 0 {
			c.info.Calls[e] = &Call{Kind: CallConvert, Type: t}
			return t
		}
		if t.Quantifier == Scalar {
			c.errorf(e.Span, diag.CodeTypeMismatch, "cannot convert %s to %s", at, t)
			return Invalid
		}
	}

	total := 0
	for _, a := range e.Args {
		if IsNumericLiteral(a) {
			c.literal(a, t.Element())
			total++
			continue
		}
		at := c.expr(a)
		if at.IsInvalid() {
			return t
		}
		if (at.Quantifier != Scalar && at.Quantifier != Vector) || at.Scalar != t.Scalar {
			c.errorf(a.Pos(), diag.CodeTypeMismatch, "cannot use %s to construct %s", at, t)
			return t
		}
		total += at.Components()
	}
	if total != t.Components() {
		c.errorf(e.Span, diag.CodeConstructorArity, "%s needs %d components, got %d", t, t.Components(), total)
		return t
	}
	c.info.Calls[e] = &Call{Kind: CallConstructor, Type: t}
	return t
}

// checkRecursion reports call cycles, which cannot be expressed in the
// output.
func (c *Checker) checkRecursion() {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[*Method]int)
	var visit func(m *Method)
	visit = func(m *Method) {
		state[m] = active
		for _, callee := range m.Calls {
			switch state[callee] {
			case active:
				c.errorf(m.Decl.Span, diag.CodeUnsupportedFeature, "recursive call from %s to %s", m.Name, callee.Name)
			case unvisited:
				visit(callee)
			}
		}
		state[m] = done
	}
	for _, m := range c.info.Methods {
		if state[m] == unvisited {
			visit(m)
		}
	}
}
