package tac

import (
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/syntax"
)

// expr lowers e and returns the register holding its value.
func (l *lowerer) expr(e syntax.Expr) string {
	if l.err != nil {
		return ""
	}
	if sema.IsNumericLiteral(e) {
		return l.literal(e)
	}
	t := l.info.TypeOf(e)
	switch e := e.(type) {
	case *syntax.Bool:
		if e.Value {
			return l.constant(sema.Bool, 1)
		}
		return l.constant(sema.Bool, 0)
	case *syntax.Paren:
		return l.expr(e.X)
	case *syntax.VariableName, *syntax.ChainAccessor, *syntax.ArrayAccessor:
		return l.load(e)
	case *syntax.Unary:
		return l.unary(e)
	case *syntax.Operation:
		operand := l.info.TypeOf(e.Left)
		if sema.IsNumericLiteral(e.Left) {
			operand = l.info.TypeOf(e.Right)
		}
		left := l.operand(e.Left, operand)
		right := l.operand(e.Right, operand)
		return l.emit(&Assign{Name: l.newTemp(), Type: t, Op: e.Op, Left: left, Right: right, Operand: operand})
	case *syntax.Ternary:
		cond := l.expr(e.Cond)
		a := l.operand(e.Then, t)
		b := l.operand(e.Else, t)
		return l.emit(&Select{Name: l.newTemp(), Type: t, Cond: cond, True: a, False: b})
	case *syntax.MethodCall:
		return l.call(e)
	}
	l.fail(e.Pos(), diag.CodeUnsupportedLowering, "cannot lower %s", syntax.Print(e))
	return ""
}

// operand lowers e and splats it to t when e is a scalar used against a
// vector or matrix.
func (l *lowerer) operand(e syntax.Expr, t *sema.SymbolType) string {
	return l.coerce(l.expr(e), l.info.TypeOf(e), t)
}

// literal folds a numeric literal, including its signs, into one constant
// of its converted type.
func (l *lowerer) literal(e syntax.Expr) string {
	t := l.info.TypeOf(e)
	negate := false
	x := e
	for {
		switch n := x.(type) {
		case *syntax.Paren:
			x = n.X
			continue
		case *syntax.Unary:
			if n.Op == "-" {
				negate = !negate
			}
			x = n.X
			continue
		}
		break
	}
	num, ok := x.(*syntax.Number)
	if !ok || t.Quantifier != sema.Scalar {
		l.fail(e.Pos(), diag.CodeUnsupportedLowering, "cannot lower literal %s", syntax.Print(e))
		return ""
	}
	if t.Scalar.Kind == sema.KindFloat {
		f, err := sema.ParseFloat(num.Text)
		if err != nil {
			l.fail(e.Pos(), diag.CodeUnsupportedLowering, "invalid literal %s", num.Text)
			return ""
		}
		if negate {
			f = -f
		}
		return l.constant(t, FloatBits(f, t.Scalar.Width))
	}
	v, err := sema.ParseInt(num.Text)
	if err != nil {
		l.fail(e.Pos(), diag.CodeUnsupportedLowering, "invalid literal %s", num.Text)
		return ""
	}
	if negate {
		v = -v
	}
	bits := uint64(v)
	if t.Scalar.Width < 8 {
		bits &= 1<<(8*uint(t.Scalar.Width)) - 1
	}
	return l.constant(t, bits)
}

func (l *lowerer) unary(e *syntax.Unary) string {
	t := l.info.TypeOf(e)
	switch e.Op {
	case "++", "--":
		old := l.load(e.X)
		one := l.coerce(l.one(t), t.Element(), t)
		op := "+"
		if e.Op == "--" {
			op = "-"
		}
		updated := l.emit(&Assign{Name: l.newTemp(), Type: t, Op: op, Left: old, Right: one, Operand: t})
		l.store(e.X, updated)
		if e.Postfix {
			return old
		}
		return updated
	case "+":
		return l.expr(e.X)
	}
	src := l.expr(e.X)
	return l.emit(&Unary{Name: l.newTemp(), Type: t, Op: e.Op, Source: src})
}

// access is an addressable location: a variable, cbuffer or stream and a
// path of indices into it.
type access struct {
	base   string
	stream string
	path   []Index
}

// chain resolves e to a location in memory. ok is false when e is a value
// held in registers; nothing has been emitted in that case unless ok is
// true or l.err is set.
func (l *lowerer) chain(e syntax.Expr, store bool) (access, bool) {
	switch n := e.(type) {
	case *syntax.Paren:
		return l.chain(n.X, store)
	case *syntax.VariableName:
		sym := l.info.Uses[n]
		switch {
		case sym == nil:
			return access{}, false
		case sym.Kind == sema.SymStreams:
			return access{base: StreamsBase}, true
		case sym.Kind == sema.SymUniform:
			return access{base: sym.Buffer.Name, path: []Index{{Const: sym.Index}}}, true
		case l.vars[sym]:
			return access{base: l.names[sym]}, true
		}
	case *syntax.ChainAccessor:
		acc := l.info.Accessors[n]
		if acc == nil {
			return access{}, false
		}
		switch acc.Kind {
		case sema.AccessStream:
			return access{base: StreamsBase, stream: n.Field}, true
		case sema.AccessField:
			a, ok := l.chain(n.X, store)
			if ok {
				a.path = append(a.path, Index{Const: acc.Index})
			}
			return a, ok
		case sema.AccessSwizzle:
			if !store || len(acc.Components) != 1 || l.info.TypeOf(n.X).Quantifier != sema.Vector {
				return access{}, false
			}
			a, ok := l.chain(n.X, store)
			if ok {
				a.path = append(a.path, Index{Const: acc.Components[0]})
			}
			return a, ok
		case sema.AccessMatrix:
			if !store || len(acc.Elements) != 1 {
				return access{}, false
			}
			a, ok := l.chain(n.X, store)
			if ok {
				a.path = append(a.path, Index{Const: acc.Elements[0][0]}, Index{Const: acc.Elements[0][1]})
			}
			return a, ok
		}
	case *syntax.ArrayAccessor:
		a, ok := l.chain(n.X, store)
		if !ok {
			return a, false
		}
		// Copy before appending: a.path may share its array with a caller.
		path := append([]Index(nil), a.path...)
		if k, constant := sema.ConstantInt(n.Index); constant {
			a.path = append(path, Index{Const: int(k)})
		} else {
			a.path = append(path, Index{Reg: l.expr(n.Index)})
		}
		return a, true
	}
	return access{}, false
}

// pointer materializes a location of type t.
func (l *lowerer) pointer(a access, t *sema.SymbolType) string {
	if len(a.path) == 0 && a.stream == "" {
		return a.base
	}
	return l.emit(&ChainRegister{Name: l.newTemp(), Type: t, Base: a.base, Path: a.path, Stream: a.stream})
}

// load reads a name or accessor expression.
func (l *lowerer) load(e syntax.Expr) string {
	t := l.info.TypeOf(e)
	if a, ok := l.chain(e, false); ok {
		return l.emit(&Load{Name: l.newTemp(), Type: t, Source: l.pointer(a, t)})
	}
	if l.err != nil {
		return ""
	}
	switch n := e.(type) {
	case *syntax.VariableName:
		sym := l.info.Uses[n]
		if name, ok := l.names[sym]; ok && sym != nil {
			return name
		}
		l.fail(n.Span, diag.CodeUnsupportedLowering, "cannot lower reference to %s", n.Name)
		return ""
	case *syntax.ChainAccessor:
		return l.member(n, t)
	case *syntax.ArrayAccessor:
		src := l.expr(n.X)
		if k, constant := sema.ConstantInt(n.Index); constant {
			return l.emit(&Extract{Name: l.newTemp(), Type: t, Source: src, Path: []int{int(k)}})
		}
		if l.info.TypeOf(n.X).Quantifier == sema.Vector {
			idx := l.expr(n.Index)
			return l.emit(&VectorIndex{Name: l.newTemp(), Type: t, Base: src, Index: idx})
		}
		l.fail(n.Span, diag.CodeUnsupportedLowering, "cannot index %s dynamically", syntax.Print(n.X))
		return ""
	}
	return l.expr(e)
}

// member reads a field or swizzle of a value held in registers.
func (l *lowerer) member(n *syntax.ChainAccessor, t *sema.SymbolType) string {
	acc := l.info.Accessors[n]
	if acc == nil {
		l.fail(n.Span, diag.CodeUnsupportedLowering, "unresolved accessor %s", n.Field)
		return ""
	}
	src := l.expr(n.X)
	xt := l.info.TypeOf(n.X)
	switch acc.Kind {
	case sema.AccessField:
		return l.emit(&Extract{Name: l.newTemp(), Type: t, Source: src, Path: []int{acc.Index}})
	case sema.AccessSwizzle:
		if xt.Quantifier == sema.Scalar {
			return l.coerce(src, xt, t)
		}
		if len(acc.Components) == 1 {
			return l.emit(&Extract{Name: l.newTemp(), Type: t, Source: src, Path: []int{acc.Components[0]}})
		}
		return l.emit(&Shuffle{Name: l.newTemp(), Type: t, First: src, Second: src, Components: acc.Components})
	case sema.AccessMatrix:
		elem := t.Element()
		args := make([]string, len(acc.Elements))
		for i, rc := range acc.Elements {
			args[i] = l.emit(&Extract{Name: l.newTemp(), Type: elem, Source: src, Path: []int{rc[0], rc[1]}})
		}
		if len(args) == 1 {
			return args[0]
		}
		return l.emit(&Constant{Name: l.newTemp(), Type: t, Args: args})
	}
	l.fail(n.Span, diag.CodeUnsupportedLowering, "cannot lower accessor %s", n.Field)
	return ""
}

// store writes value to an assignable expression.
func (l *lowerer) store(target syntax.Expr, value string) {
	if l.err != nil {
		return
	}
	t := l.info.TypeOf(target)
	if a, ok := l.chain(target, true); ok {
		l.emit(&Copy{Name: l.pointer(a, t), Type: t, Source: value})
		return
	}
	// A multi-component swizzle store merges into the whole vector.
	if n, ok := syntax.Unparen(target).(*syntax.ChainAccessor); ok {
		acc := l.info.Accessors[n]
		xt := l.info.TypeOf(n.X)
		if acc != nil && acc.Kind == sema.AccessSwizzle && xt.Quantifier == sema.Vector {
			if a, ok := l.chain(n.X, true); ok {
				ptr := l.pointer(a, xt)
				old := l.emit(&Load{Name: l.newTemp(), Type: xt, Source: ptr})
				size := xt.Size[0]
				comps := make([]int, size)
				for i := range comps {
					comps[i] = i
				}
				for j, c := range acc.Components {
					comps[c] = size + j
				}
				merged := l.emit(&Shuffle{Name: l.newTemp(), Type: xt, First: old, Second: value, Components: comps})
				l.emit(&Copy{Name: ptr, Type: xt, Source: merged})
				return
			}
		}
	}
	if l.err == nil {
		l.fail(target.Pos(), diag.CodeUnsupportedLowering, "cannot assign to %s", syntax.Print(target))
	}
}

func (l *lowerer) call(e *syntax.MethodCall) string {
	c := l.info.Calls[e]
	if c == nil {
		l.fail(e.Span, diag.CodeUnsupportedLowering, "unresolved call %s", e.Name)
		return ""
	}
	switch c.Kind {
	case sema.CallMethod:
		args := make([]string, len(e.Args))
		types := make([]*sema.SymbolType, len(e.Args))
		for i, a := range e.Args {
			types[i] = c.Method.Params[i].Type
			args[i] = l.operand(a, types[i])
		}
		return l.emit(&Call{Name: l.newTemp(), Type: c.Type, Function: c.Method.Name, Args: args, ArgTypes: types})
	case sema.CallIntrinsic:
		return l.intrinsic(e, c)
	case sema.CallConvert:
		a := e.Args[0]
		v := l.expr(a)
		at := l.info.TypeOf(a)
		if at.Scalar != c.Type.Scalar {
			at2 := at.WithScalar(c.Type.Element())
			v = l.emit(&Convert{Name: l.newTemp(), Type: at2, From: at, Source: v})
			at = at2
		}
		return l.coerce(v, at, c.Type)
	case sema.CallConstructor:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = l.expr(a)
		}
		return l.emit(&Constant{Name: l.newTemp(), Type: c.Type, Args: args})
	}
	l.fail(e.Span, diag.CodeUnsupportedLowering, "cannot lower call to %s", e.Name)
	return ""
}

func (l *lowerer) intrinsic(e *syntax.MethodCall, c *sema.Call) string {
	switch c.Name {
	case "EmitVertex":
		l.emit(&EmitVertex{})
		return ""
	case "mul":
		// With a literal operand mul is a plain scaling.
		if sema.IsNumericLiteral(e.Args[0]) || sema.IsNumericLiteral(e.Args[1]) {
			left := l.operand(e.Args[0], c.Type)
			right := l.operand(e.Args[1], c.Type)
			return l.emit(&Assign{Name: l.newTemp(), Type: c.Type, Op: "*", Left: left, Right: right, Operand: c.Type})
		}
		a, b := l.expr(e.Args[0]), l.expr(e.Args[1])
		types := []*sema.SymbolType{l.info.TypeOf(e.Args[0]), l.info.TypeOf(e.Args[1])}
		return l.emit(&Call{Name: l.newTemp(), Type: c.Type, Intrinsic: "mul", Args: []string{a, b}, ArgTypes: types})
	}
	var target *sema.SymbolType
	for _, a := range e.Args {
		if !sema.IsNumericLiteral(a) {
			target = l.info.TypeOf(a)
			break
		}
	}
	if target == nil {
		target = l.info.TypeOf(e.Args[0])
	}
	args := make([]string, len(e.Args))
	types := make([]*sema.SymbolType, len(e.Args))
	for i, a := range e.Args {
		args[i] = l.operand(a, target)
		types[i] = target
	}
	return l.emit(&Call{Name: l.newTemp(), Type: c.Type, Intrinsic: c.Name, Args: args, ArgTypes: types})
}
