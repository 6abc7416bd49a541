// Package tac lowers checked methods to three-address registers.
//
// Every register that produces a value has a unique name within its
// function: "%<index>" for temporaries, or the source identifier for named
// locals. Registers are kept in a flat slice per function in execution
// order; control flow is expressed with Label, Jump and Branch registers in
// SPIR-V's structured form.
package tac

import (
	"github.com/gogpu/sdsl/sema"
)

// Register is one three-address instruction.
type Register interface {
	// Result is the name of the value or label the register defines, or ""
	// if it defines nothing.
	Result() string
	register()
}

// Declare introduces a mutable local variable.
type Declare struct {
	Name string
	Type *sema.SymbolType
}

// Copy writes Source to Name. With Declare set, Name is a new immutable
// local aliasing Source. Without Declare, Name is a variable or a
// ChainRegister and the copy is a store.
type Copy struct {
	Name    string
	Type    *sema.SymbolType
	Source  string
	Declare bool
}

// Assign is a binary operation.
type Assign struct {
	Name        string
	Type        *sema.SymbolType
	Op          string
	Left, Right string
	// Operand is the type of both operands.
	Operand *sema.SymbolType
}

// Constant is a scalar literal, or a composite of the registers in Args.
// Composites whose arguments are all constants fold into one constant.
type Constant struct {
	Name string
	Type *sema.SymbolType
	// Bits holds the scalar value: IEEE bits for floats, two's complement
	// for integers, 0 or 1 for bool.
	Bits uint64
	Args []string
}

// IsComposite reports whether c aggregates other registers.
func (c *Constant) IsComposite() bool { return c.Args != nil }

// Index is one step of a ChainRegister path.
type Index struct {
	Const int
	// Reg names a register holding a dynamic index.
	Reg string
}

// StreamsBase is the Base of chains into the streams variable.
const StreamsBase = "streams"

// ChainRegister is a pointer into a variable through a path of member and
// element indices. Chains on the streams variable name the stream field in
// Stream; Path then continues inside that field.
type ChainRegister struct {
	Name   string
	Type   *sema.SymbolType
	Base   string
	Path   []Index
	Stream string
}

// Load reads the value a variable or chain points to.
type Load struct {
	Name   string
	Type   *sema.SymbolType
	Source string
}

// Extract reads a member of a composite value by constant indices.
type Extract struct {
	Name   string
	Type   *sema.SymbolType
	Source string
	Path   []int
}

// Shuffle selects vector components. Components index the concatenation
// of First and Second; Second may equal First.
type Shuffle struct {
	Name          string
	Type          *sema.SymbolType
	First, Second string
	Components    []int
}

// Unary is a prefix operation: "-", "!" or "~".
type Unary struct {
	Name   string
	Type   *sema.SymbolType
	Op     string
	Source string
}

// VectorIndex reads a vector component selected at run time.
type VectorIndex struct {
	Name  string
	Type  *sema.SymbolType
	Base  string
	Index string
}

// Call calls a user method (Function) or an intrinsic (Intrinsic).
type Call struct {
	Name      string
	Type      *sema.SymbolType
	Function  string
	Intrinsic string
	Args      []string
	// ArgTypes are the argument types, needed to select intrinsic variants.
	ArgTypes []*sema.SymbolType
}

// Convert changes the element type of a value, splatting scalars to vector
// and matrix types.
type Convert struct {
	Name   string
	Type   *sema.SymbolType
	From   *sema.SymbolType
	Source string
}

// Select is cond ? True : False with both sides evaluated.
type Select struct {
	Name        string
	Type        *sema.SymbolType
	Cond        string
	True, False string
}

// Label starts a basic block.
type Label struct {
	Name string
}

// Jump ends a block with an unconditional branch.
type Jump struct {
	Target string
}

// Branch ends a block with a conditional branch. Merge is set for selection
// constructs; loop headers carry a LoopMerge instead.
type Branch struct {
	Cond        string
	True, False string
	Merge       string
}

// LoopMerge declares the merge and continue blocks of the loop whose header
// block it ends.
type LoopMerge struct {
	Merge, Continue string
}

// Return leaves the function with an optional value.
type Return struct {
	Value string
}

// Discard ends the invocation of a pixel shader.
type Discard struct{}

// EmitVertex emits the current output vertex of a geometry shader.
type EmitVertex struct{}

func (r *Declare) Result() string { return r.Name }
func (r *Copy) Result() string {
	if r.Declare {
		return r.Name
	}
	return ""
}
func (r *Assign) Result() string        { return r.Name }
func (r *Constant) Result() string      { return r.Name }
func (r *ChainRegister) Result() string { return r.Name }
func (r *Load) Result() string          { return r.Name }
func (r *Extract) Result() string       { return r.Name }
func (r *Shuffle) Result() string       { return r.Name }
func (r *Unary) Result() string         { return r.Name }
func (r *VectorIndex) Result() string   { return r.Name }
func (r *Call) Result() string          { return r.Name }
func (r *Convert) Result() string       { return r.Name }
func (r *Select) Result() string        { return r.Name }
func (r *Label) Result() string         { return r.Name }
func (r *Jump) Result() string          { return "" }
func (r *Branch) Result() string        { return "" }
func (r *LoopMerge) Result() string     { return "" }
func (r *Return) Result() string        { return "" }
func (r *Discard) Result() string       { return "" }
func (r *EmitVertex) Result() string    { return "" }

func (*Declare) register()       {}
func (*Copy) register()          {}
func (*Assign) register()        {}
func (*Constant) register()      {}
func (*ChainRegister) register() {}
func (*Load) register()          {}
func (*Extract) register()       {}
func (*Shuffle) register()       {}
func (*Unary) register()         {}
func (*VectorIndex) register()   {}
func (*Call) register()          {}
func (*Convert) register()       {}
func (*Select) register()        {}
func (*Label) register()         {}
func (*Jump) register()          {}
func (*Branch) register()        {}
func (*LoopMerge) register()     {}
func (*Return) register()        {}
func (*Discard) register()       {}
func (*EmitVertex) register()    {}

// IsTerminator reports whether r ends a basic block.
func IsTerminator(r Register) bool {
	switch r.(type) {
	case *Jump, *Branch, *Return, *Discard:
		return true
	}
	return false
}

// ConstKey identifies a scalar constant by type and value.
type ConstKey struct {
	Type string
	Bits uint64
}

// Param is a function parameter.
type Param struct {
	Name string
	Type *sema.SymbolType
}

// Function is a lowered method.
type Function struct {
	Name   string
	Result *sema.SymbolType
	Params []Param
	// Registers in execution order. The first register is the entry label.
	Registers []Register
	// Lookup maps register names to their index in Registers.
	Lookup map[string]int
	// Constants de-duplicates scalar constants.
	Constants map[ConstKey]string
	// Method is the checked method the function was lowered from.
	Method *sema.Method
}

// Register returns the register that defines name, or nil.
func (f *Function) Register(name string) Register {
	if i, ok := f.Lookup[name]; ok {
		return f.Registers[i]
	}
	return nil
}

// Global is a private shader variable.
type Global struct {
	Name string
	Type *sema.SymbolType
	// Init names a constant in Program.Init, or "".
	Init string
}

// Program is a lowered file.
type Program struct {
	Functions []*Function
	Globals   []Global
	// Init holds the constant registers of global initializers.
	Init     []Register
	CBuffers []*sema.CBuffer
	// Streams is the placeholder struct of all stream members.
	Streams *sema.SymbolType
}

// Function finds a function by name.
func (p *Program) Function(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
