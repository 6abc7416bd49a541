package tac

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/syntax"
)

type loop struct {
	merge, cont string
}

type lowerer struct {
	info *sema.Info
	fn   *Function
	// names maps symbols to the register or variable holding them.
	names map[*sema.Symbol]string
	// vars marks symbols held in variables rather than SSA registers.
	vars  map[*sema.Symbol]bool
	used  map[string]bool
	loops []loop
	temp  int
	// open is false after a terminator until the next label.
	open bool
	err  error
}

// Lower lowers every checked method of file, in declaration order, and
// the initializers of its globals.
func Lower(file *syntax.File, info *sema.Info) (*Program, error) {
	prog := &Program{CBuffers: info.CBuffers, Streams: info.Streams}
	reserved := map[string]bool{StreamsBase: true}
	for _, cb := range info.CBuffers {
		reserved[cb.Name] = true
	}
	for _, g := range info.Globals {
		reserved[g.Name] = true
	}

	init := &lowerer{info: info, fn: newFunction("", nil), names: map[*sema.Symbol]string{}, vars: map[*sema.Symbol]bool{}, used: copySet(reserved), open: true}
	for _, g := range info.Globals {
		if !g.Type.Resolved() {
			return nil, errorf(g.Decl.Pos(), diag.CodeUnresolvedArray, "global %s has unresolved type %s", g.Name, g.Type)
		}
		global := Global{Name: g.Name, Type: g.Type}
		if d, ok := g.Decl.(*syntax.VariableDecl); ok && d.Value != nil {
			global.Init = init.coerce(init.expr(d.Value), info.TypeOf(d.Value), g.Type)
			if init.err != nil {
				return nil, init.err
			}
		}
		prog.Globals = append(prog.Globals, global)
	}
	for _, r := range init.fn.Registers {
		if _, ok := r.(*Constant); !ok {
			return nil, errorf(file.Span, diag.CodeUnsupportedLowering, "global initializers must be constant")
		}
		prog.Init = append(prog.Init, r)
	}

	for _, d := range methodDecls(file.Decls, nil) {
		m := info.Method(d.Name)
		if m == nil || m.Decl != d || d.Body == nil {
			continue
		}
		l := &lowerer{
			info:  info,
			fn:    newFunction(m.Name, m),
			names: map[*sema.Symbol]string{},
			vars:  map[*sema.Symbol]bool{},
			used:  copySet(reserved),
		}
		for _, g := range info.Globals {
			l.names[g] = g.Name
			l.vars[g] = true
		}
		if err := l.method(m); err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, l.fn)
	}
	return prog, nil
}

func methodDecls(decls []syntax.Decl, out []*syntax.MethodDecl) []*syntax.MethodDecl {
	for _, d := range decls {
		switch d := d.(type) {
		case *syntax.ShaderDecl:
			out = methodDecls(d.Members, out)
		case *syntax.NamespaceDecl:
			out = methodDecls(d.Decls, out)
		case *syntax.MethodDecl:
			out = append(out, d)
		}
	}
	return out
}

func newFunction(name string, m *sema.Method) *Function {
	fn := &Function{
		Name:      name,
		Lookup:    make(map[string]int),
		Constants: make(map[ConstKey]string),
		Method:    m,
	}
	if m != nil {
		fn.Result = m.Result
	}
	return fn
}

func copySet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func errorf(span diag.Span, code diag.Code, format string, args ...any) error {
	return &diag.Diagnostic{Span: span, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (l *lowerer) fail(span diag.Span, code diag.Code, format string, args ...any) {
	if l.err == nil {
		l.err = errorf(span, code, format, args...)
	}
}

func (l *lowerer) method(m *sema.Method) error {
	l.label(l.newTemp())
	dynamic := dynamicallyIndexed(l.info, m.Decl.Body)
	for i, p := range m.Params {
		if !p.Type.Resolved() {
			return errorf(m.Decl.Params[i].Span, diag.CodeUnresolvedArray, "parameter %s has unresolved type %s", p.Name, p.Type)
		}
		name := l.unique(p.Name)
		l.fn.Params = append(l.fn.Params, Param{Name: name, Type: p.Type})
		if p.Mutable || dynamic[p] {
			v := l.unique(p.Name + "_var")
			l.emit(&Declare{Name: v, Type: p.Type})
			l.emit(&Copy{Name: v, Type: p.Type, Source: name})
			l.names[p] = v
			l.vars[p] = true
			continue
		}
		l.names[p] = name
	}
	for sym := range dynamic {
		if sym.Kind == sema.SymLocal {
			l.vars[sym] = true
		}
	}

	l.block(m.Decl.Body)
	if l.open && m.Result == sema.VoidType {
		l.emit(&Return{})
	}
	return l.err
}

// dynamicallyIndexed finds locals and parameters indexed at run time as
// arrays or matrices; they need variables so that the index can be applied
// through an access chain.
func dynamicallyIndexed(info *sema.Info, body *syntax.Block) map[*sema.Symbol]bool {
	out := make(map[*sema.Symbol]bool)
	syntax.Inspect(body, func(n syntax.Node) bool {
		a, ok := n.(*syntax.ArrayAccessor)
		if !ok {
			return true
		}
		if _, constant := sema.ConstantInt(a.Index); constant {
			return true
		}
		if t := info.TypeOf(a.X); t.Quantifier != sema.Array && t.Quantifier != sema.Matrix {
			return true
		}
		if sym := rootSymbol(info, a.X); sym != nil && (sym.Kind == sema.SymLocal || sym.Kind == sema.SymParam) {
			out[sym] = true
		}
		return true
	})
	return out
}

func rootSymbol(info *sema.Info, e syntax.Expr) *sema.Symbol {
	for {
		switch n := e.(type) {
		case *syntax.Paren:
			e = n.X
		case *syntax.ChainAccessor:
			e = n.X
		case *syntax.ArrayAccessor:
			e = n.X
		case *syntax.VariableName:
			return info.Uses[n]
		default:
			return nil
		}
	}
}

// emit appends r. Registers following a terminator start a new, unreachable
// block.
func (l *lowerer) emit(r Register) string {
	if _, isLabel := r.(*Label); !isLabel && !l.open {
		l.label(l.newTemp())
	}
	l.fn.Registers = append(l.fn.Registers, r)
	if name := r.Result(); name != "" {
		l.fn.Lookup[name] = len(l.fn.Registers) - 1
	}
	if IsTerminator(r) {
		l.open = false
	}
	return r.Result()
}

func (l *lowerer) label(name string) {
	l.emit(&Label{Name: name})
	l.open = true
}

func (l *lowerer) newTemp() string {
	for {
		name := "%" + strconv.Itoa(l.temp)
		l.temp++
		if !l.used[name] {
			l.used[name] = true
			return name
		}
	}
}

// unique returns name, or name with a suffix if a register already has it.
func (l *lowerer) unique(name string) string {
	candidate := name
	for i := 1; l.used[candidate]; i++ {
		candidate = name + "_" + strconv.Itoa(i)
	}
	l.used[candidate] = true
	return candidate
}

// constant returns the de-duplicated scalar constant of type t.
func (l *lowerer) constant(t *sema.SymbolType, bits uint64) string {
	key := ConstKey{Type: t.Key(), Bits: bits}
	if name, ok := l.fn.Constants[key]; ok {
		return name
	}
	name := l.emit(&Constant{Name: l.newTemp(), Type: t, Bits: bits})
	l.fn.Constants[key] = name
	return name
}

// one returns the constant 1 of t's element type.
func (l *lowerer) one(t *sema.SymbolType) string {
	elem := t.Element()
	switch elem.Scalar.Kind {
	case sema.KindFloat:
		return l.constant(elem, FloatBits(1, elem.Scalar.Width))
	default:
		return l.constant(elem, 1)
	}
}

// coerce adapts a value to the type its context expects: scalars splat to
// vectors and matrices. Other conversions were rejected during checking.
func (l *lowerer) coerce(name string, from, to *sema.SymbolType) string {
	if name == "" || from.IsInvalid() || to.IsInvalid() || from.Quantifier != sema.Scalar {
		return name
	}
	switch to.Quantifier {
	case sema.Vector:
		args := make([]string, to.Size[0])
		for i := range args {
			args[i] = name
		}
		return l.emit(&Constant{Name: l.newTemp(), Type: to, Args: args})
	case sema.Matrix:
		row := l.coerce(name, from, sema.VectorOf(to.Element(), to.Size[1]))
		args := make([]string, to.Size[0])
		for i := range args {
			args[i] = row
		}
		return l.emit(&Constant{Name: l.newTemp(), Type: to, Args: args})
	}
	return name
}

// FloatBits encodes f as a float of the given byte width.
func FloatBits(f float64, width uint8) uint64 {
	switch width {
	case 2:
		return uint64(halfBits(float32(f)))
	case 8:
		return math.Float64bits(f)
	default:
		return uint64(math.Float32bits(float32(f)))
	}
}

// halfBits converts to IEEE 754 binary16, rounding to nearest.
func halfBits(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xff) - 127 + 15
	mant := b & 0x7fffff
	switch {
	case b&0x7fffffff == 0:
		return sign
	case b>>23&0xff == 0xff:
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	}
	half := sign | uint16(exp)<<10 | uint16(mant>>13)
	if mant&0x1000 != 0 {
		half++
	}
	return half
}

func itoa(i int) string { return strconv.Itoa(i) }

func hex(bits uint64) string { return "0x" + strconv.FormatUint(bits, 16) }
