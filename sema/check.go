package sema

import (
	"go.uber.org/zap"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

// Options configures checking.
type Options struct {
	// Logger receives debug output. Nil means no logging.
	Logger *zap.Logger
}

// DefaultOptions returns the default checking options.
func DefaultOptions() Options {
	return Options{Logger: zap.NewNop()}
}

// Checker resolves names and types for one file.
type Checker struct {
	info   *Info
	table  *SymbolTable
	diags  diag.List
	method *Method
	loops  int
	log    *zap.Logger
}

// NewChecker creates a checker with an empty symbol table.
func NewChecker(opts Options) *Checker {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		info:  newInfo(),
		table: NewSymbolTable(),
		log:   log,
	}
}

// Info returns the results recorded so far.
func (c *Checker) Info() *Info { return c.info }

// Diagnostics returns the diagnostics reported so far.
func (c *Checker) Diagnostics() diag.List { return c.diags }

// Table returns the checker's symbol table.
func (c *Checker) Table() *SymbolTable { return c.table }

// Check resolves the shader members of file: top level declarations and
// the members of every shader declaration. Effects and parameter blocks are
// not checked here.
func Check(file *syntax.File, opts Options) (*Info, diag.List) {
	c := NewChecker(opts)
	c.CheckFile(file)
	c.diags.Sort()
	c.log.Debug("checked file",
		zap.Int("methods", len(c.info.Methods)),
		zap.Int("structs", len(c.info.Structs)),
		zap.Int("globals", len(c.info.Globals)),
		zap.Int("diagnostics", len(c.diags)))
	return c.info, c.diags
}

// members flattens the declarations to check.
func members(decls []syntax.Decl, out []syntax.Decl) []syntax.Decl {
	for _, d := range decls {
		switch d := d.(type) {
		case *syntax.ShaderDecl:
			out = members(d.Members, out)
		case *syntax.NamespaceDecl:
			out = members(d.Decls, out)
		case *syntax.EffectDecl, *syntax.ParamsDecl:
		default:
			out = append(out, d)
		}
	}
	return out
}

// CheckFile checks all members in four passes: types, variables, method
// signatures and finally method bodies, so that members can be used before
// their declaration.
func (c *Checker) CheckFile(file *syntax.File) {
	decls := members(file.Decls, nil)

	var structs []*syntax.StructDecl
	for _, d := range decls {
		if s, ok := d.(*syntax.StructDecl); ok {
			t := StructOf(s.Name, nil)
			if BuiltinType(s.Name, nil) != nil || !c.table.DeclareType(t) {
				c.errorf(s.Span, diag.CodeRedeclared, "type %s redeclared", s.Name)
				continue
			}
			structs = append(structs, s)
			c.info.Structs = append(c.info.Structs, t)
		}
	}
	for i, s := range structs {
		t := c.info.Structs[i]
		for _, f := range s.Fields {
			ft := c.resolveVariableType(f)
			if t.Field(f.Name) >= 0 {
				c.errorf(f.Span, diag.CodeRedeclared, "field %s redeclared in %s", f.Name, s.Name)
				continue
			}
			t.Fields = append(t.Fields, Field{Name: f.Name, Type: ft, Semantic: f.Semantic})
		}
	}

	var streamFields []Field
	for _, d := range decls {
		switch d := d.(type) {
		case *syntax.VariableDecl:
			if d.Modifiers.Has(syntax.ModStream) {
				t := c.resolveVariableType(d)
				if d.Value != nil {
					c.errorf(d.Value.Pos(), diag.CodeUnsupportedFeature, "stream member %s cannot have an initializer", d.Name)
				}
				dup := false
				for _, f := range streamFields {
					dup = dup || f.Name == d.Name
				}
				if dup {
					c.errorf(d.Span, diag.CodeRedeclared, "stream %s redeclared", d.Name)
					continue
				}
				streamFields = append(streamFields, Field{Name: d.Name, Type: t, Semantic: d.Semantic})
				continue
			}
			c.declareGlobal(d)
		case *syntax.CBufferDecl:
			c.declareCBuffer(d)
		}
	}
	c.info.Streams = PlaceholderOf(PlaceholderStreams, streamFields)
	c.info.StreamsSymbol = &Symbol{Name: "streams", Kind: SymStreams, Type: c.info.Streams}
	if _, ok := c.table.Declare(c.info.StreamsSymbol); !ok {
		c.errorf(diag.Span{}, diag.CodeRedeclared, "streams redeclared")
	}

	for _, d := range decls {
		if m, ok := d.(*syntax.MethodDecl); ok {
			c.declareMethod(m)
		}
	}
	for _, m := range c.info.Methods {
		c.checkBody(m)
	}
	c.checkRecursion()
}

func (c *Checker) declareGlobal(d *syntax.VariableDecl) {
	t := c.resolveVariableType(d)
	sym := &Symbol{Name: d.Name, Kind: SymGlobal, Type: t, Decl: d, Const: d.Modifiers.Has(syntax.ModConst)}
	if d.Value != nil {
		c.TypeCheck(d.Value, t)
		if !IsConstantExpr(d.Value) {
			c.errorf(d.Value.Pos(), diag.CodeUnsupportedFeature, "initializer of %s must be a constant expression", d.Name)
		}
	} else if sym.Const {
		c.errorf(d.Span, diag.CodeTypeMismatch, "const %s requires an initializer", d.Name)
	}
	if _, ok := c.table.Declare(sym); !ok {
		c.errorf(d.Span, diag.CodeRedeclared, "%s redeclared", d.Name)
		return
	}
	c.info.Defs[d] = sym
	c.info.Globals = append(c.info.Globals, sym)
}

func (c *Checker) declareCBuffer(d *syntax.CBufferDecl) {
	cb := &CBuffer{Name: d.Name, Binding: len(c.info.CBuffers)}
	var fields []Field
	for _, m := range d.Members {
		t := c.resolveVariableType(m)
		if m.Value != nil {
			c.errorf(m.Value.Pos(), diag.CodeUnsupportedFeature, "cbuffer member %s cannot have an initializer", m.Name)
		}
		sym := &Symbol{Name: m.Name, Kind: SymUniform, Type: t, Decl: m, Buffer: cb, Index: len(fields)}
		if _, ok := c.table.Declare(sym); !ok {
			c.errorf(m.Span, diag.CodeRedeclared, "%s redeclared", m.Name)
			continue
		}
		fields = append(fields, Field{Name: m.Name, Type: t})
		cb.Members = append(cb.Members, sym)
		c.info.Defs[m] = sym
	}
	cb.Type = StructOf(d.Name, fields)
	c.info.CBuffers = append(c.info.CBuffers, cb)
}

func (c *Checker) declareMethod(d *syntax.MethodDecl) {
	m := &Method{Name: d.Name, Decl: d, Result: c.resolveType(d.Result)}
	if m.Result.Quantifier == Array {
		c.errorf(d.Result.Span, diag.CodeUnsupportedFeature, "methods cannot return arrays")
	}
	for _, p := range d.Params {
		if p.Qualifier == "out" || p.Qualifier == "inout" {
			c.errorf(p.Span, diag.CodeUnsupportedFeature, "%s parameters are not supported", p.Qualifier)
		}
		m.Params = append(m.Params, &Symbol{Name: p.Name, Kind: SymParam, Type: c.resolveType(p.Type), Decl: p})
	}
	if d.Modifiers.Has(syntax.ModAbstract) && d.Body == nil {
		return
	}
	if _, dup := c.info.methods[d.Name]; dup {
		c.errorf(d.Span, diag.CodeRedeclared, "method %s redeclared", d.Name)
		return
	}
	c.info.methods[d.Name] = m
	c.info.Methods = append(c.info.Methods, m)
}

func (c *Checker) checkBody(m *Method) {
	c.method = m
	defer func() { c.method = nil }()

	c.table.Push()
	for i, p := range m.Params {
		if prev, ok := c.table.Declare(p); !ok {
			c.errorf(m.Decl.Params[i].Span, diag.CodeRedeclared, "parameter %s hides %s %s", p.Name, prev.Kind, p.Name)
			continue
		}
		c.info.Defs[m.Decl.Params[i]] = p
	}
	if m.Decl.Body != nil {
		c.block(m.Decl.Body)
		if m.Result != VoidType && !m.Result.IsInvalid() && !terminates(m.Decl.Body) {
			c.errorf(m.Decl.Span, diag.CodeMissingReturn, "method %s does not return a value on every path", m.Name)
		}
	}
	c.table.Pop()
}

// terminates reports whether control never reaches the end of s.
func terminates(s syntax.Stmt) bool {
	switch s := s.(type) {
	case *syntax.Return:
		return true
	case *syntax.Flow:
		return s.Kind == syntax.FlowDiscard
	case *syntax.Block:
		return len(s.Stmts) > 0 && terminates(s.Stmts[len(s.Stmts)-1])
	case *syntax.If:
		return s.Else != nil && terminates(s.Then) && terminates(s.Else)
	}
	return false
}

// resolveType resolves a written type, array suffix included.
func (c *Checker) resolveType(tn *syntax.TypeName) *SymbolType {
	if tn == nil {
		return VoidType
	}
	t := c.table.LookupType(tn.Name, tn.Args)
	if t == nil {
		c.errorf(tn.Span, diag.CodeUnknownType, "unknown type %s", syntax.Print(tn))
		return Invalid
	}
	if tn.ArraySize != nil {
		t = c.arrayOf(t, tn.ArraySize)
	}
	return t
}

// resolveVariableType resolves the type of a variable, including an array
// size written after the name.
func (c *Checker) resolveVariableType(d *syntax.VariableDecl) *SymbolType {
	t := c.resolveType(d.Type)
	if t == VoidType {
		c.errorf(d.Type.Span, diag.CodeUnknownType, "variable %s cannot be void", d.Name)
		return Invalid
	}
	if d.ArraySize != nil && !t.IsInvalid() {
		t = c.arrayOf(t, d.ArraySize)
	}
	return t
}

func (c *Checker) arrayOf(elem *SymbolType, size syntax.Expr) *SymbolType {
	n, ok := ConstantInt(size)
	if !ok || n <= 0 {
		c.errorf(size.Pos(), diag.CodeInvalidArraySize, "array size must be a positive integer constant")
		return ArrayOf(elem, 0)
	}
	c.info.Types[size] = Int
	return ArrayOf(elem, int(n))
}

func (c *Checker) errorf(span diag.Span, code diag.Code, format string, args ...any) {
	c.diags.Addf(span, code, format, args...)
}
