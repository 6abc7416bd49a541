package sema

import (
	"github.com/gogpu/sdsl/syntax"
)

// SymbolKind classifies what a name refers to.
type SymbolKind uint8

const (
	SymLocal SymbolKind = iota
	SymParam
	// SymGlobal is a shader member variable outside streams and cbuffers.
	SymGlobal
	// SymUniform is a cbuffer member.
	SymUniform
	// SymStreams is the implicit streams variable.
	SymStreams
)

func (k SymbolKind) String() string {
	switch k {
	case SymLocal:
		return "local"
	case SymParam:
		return "parameter"
	case SymGlobal:
		return "global"
	case SymUniform:
		return "uniform"
	case SymStreams:
		return "streams"
	default:
		return "symbol"
	}
}

// Symbol is a declared variable.
type Symbol struct {
	Name string
	Kind SymbolKind
	Type *SymbolType
	// Decl is the declaring node: *syntax.VariableDecl, *syntax.Param, or nil
	// for implicit symbols.
	Decl syntax.Node
	// Mutable is set when the symbol is written after its declaration.
	Mutable bool
	// Const is set for const declarations.
	Const bool
	// Buffer and Index locate a cbuffer member.
	Buffer *CBuffer
	Index  int
}

// SymbolTable holds declared types and a stack of variable scopes.
type SymbolTable struct {
	types  map[string]*SymbolType
	scopes []map[string]*Symbol
}

// NewSymbolTable creates a table with one (global) scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		types:  make(map[string]*SymbolType),
		scopes: []map[string]*Symbol{{}},
	}
}

// DeclareType registers a named type. It reports false if the name is taken.
func (st *SymbolTable) DeclareType(t *SymbolType) bool {
	if _, ok := st.types[t.Name]; ok {
		return false
	}
	st.types[t.Name] = t
	return true
}

// LookupType finds a declared or predeclared type.
func (st *SymbolTable) LookupType(name string, args []string) *SymbolType {
	if t, ok := st.types[name]; ok && len(args) == 0 {
		return t
	}
	return BuiltinType(name, args)
}

// Push opens a scope.
func (st *SymbolTable) Push() {
	st.scopes = append(st.scopes, map[string]*Symbol{})
}

// Pop closes the innermost scope, dropping exactly its bindings.
func (st *SymbolTable) Pop() {
	if len(st.scopes) == 1 {
		panic("sema: pop of global scope")
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Depth is the number of open scopes, the global scope included.
func (st *SymbolTable) Depth() int {
	return len(st.scopes)
}

// Declare binds sym in the innermost scope. A name that is already visible
// in the scope chain is not rebound; the visible symbol is returned instead.
func (st *SymbolTable) Declare(sym *Symbol) (*Symbol, bool) {
	if prev := st.Lookup(sym.Name); prev != nil {
		return prev, false
	}
	st.scopes[len(st.scopes)-1][sym.Name] = sym
	return sym, true
}

// Lookup finds name from the innermost scope outwards.
func (st *SymbolTable) Lookup(name string) *Symbol {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i][name]; ok {
			return sym
		}
	}
	return nil
}
