package sema

import (
	"github.com/gogpu/sdsl/syntax"
)

// Info holds the results of checking a file.
type Info struct {
	// Types maps every checked expression to its type. Numeric literals
	// carry the type they were converted to.
	Types map[syntax.Expr]*SymbolType
	// Defs maps declarations (*syntax.VariableDecl, *syntax.Param) to their
	// symbols.
	Defs map[syntax.Node]*Symbol
	// Uses maps names to the symbols they refer to.
	Uses map[*syntax.VariableName]*Symbol
	// Accessors records how each member access resolved.
	Accessors map[*syntax.ChainAccessor]*Accessor
	// Calls records how each call resolved.
	Calls map[*syntax.MethodCall]*Call

	// Methods lists methods in declaration order.
	Methods []*Method
	// Structs lists user struct types in declaration order.
	Structs []*SymbolType
	// Streams is the placeholder struct of all stream members, in
	// declaration order.
	Streams *SymbolType
	// StreamsSymbol is the implicit streams variable.
	StreamsSymbol *Symbol
	// Globals lists shader member variables in declaration order.
	Globals []*Symbol
	// CBuffers lists constant buffers in declaration order.
	CBuffers []*CBuffer

	methods map[string]*Method
}

func newInfo() *Info {
	return &Info{
		Types:     make(map[syntax.Expr]*SymbolType),
		Defs:      make(map[syntax.Node]*Symbol),
		Uses:      make(map[*syntax.VariableName]*Symbol),
		Accessors: make(map[*syntax.ChainAccessor]*Accessor),
		Calls:     make(map[*syntax.MethodCall]*Call),
		methods:   make(map[string]*Method),
	}
}

// TypeOf returns the recorded type of e, or Invalid.
func (info *Info) TypeOf(e syntax.Expr) *SymbolType {
	if t, ok := info.Types[e]; ok {
		return t
	}
	return Invalid
}

// Method finds a method by name.
func (info *Info) Method(name string) *Method {
	return info.methods[name]
}

// Method is a checked method.
type Method struct {
	Name   string
	Decl   *syntax.MethodDecl
	Result *SymbolType
	Params []*Symbol
	// Calls lists the distinct user methods called, in first-call order.
	Calls []*Method
	// Reads and Writes list the stream fields accessed directly by the body,
	// in first-access order.
	Reads  []string
	Writes []string
	// EmitsVertex is set when the body calls EmitVertex.
	EmitsVertex bool
}

func (m *Method) addCall(callee *Method) {
	for _, c := range m.Calls {
		if c == callee {
			return
		}
	}
	m.Calls = append(m.Calls, callee)
}

func addName(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

// CBuffer is a constant buffer declaration.
type CBuffer struct {
	Name    string
	Type    *SymbolType
	Members []*Symbol
	Binding int
}

// AccessKind classifies a member access.
type AccessKind uint8

const (
	AccessField AccessKind = iota
	AccessSwizzle
	AccessMatrix
	AccessStream
)

// Accessor is a resolved member access.
type Accessor struct {
	Kind AccessKind
	// Index is the struct or stream field index.
	Index int
	// Components are the vector components of a swizzle.
	Components []int
	// Elements are the (row, col) pairs of a matrix swizzle.
	Elements [][2]int
}

// CallKind classifies a call.
type CallKind uint8

const (
	// CallConstructor builds a vector or matrix from components.
	CallConstructor CallKind = iota
	// CallConvert converts one scalar, vector or matrix to another element
	// type, or splats a scalar.
	CallConvert
	CallIntrinsic
	CallMethod
)

// Call is a resolved call.
type Call struct {
	Kind   CallKind
	Type   *SymbolType
	Method *Method
	// Name is the intrinsic name for CallIntrinsic.
	Name string
}
