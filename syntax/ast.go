package syntax

import "github.com/gogpu/sdsl/diag"

// File is a parsed SDSL source file.
type File struct {
	Decls []Decl
	Span  diag.Span
}

func (f *File) Pos() diag.Span { return f.Span }

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() diag.Span
}

// Decl is the interface for declarations.
type Decl interface {
	Node
	declNode()
}

// Stmt is the interface for statements.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the interface for expressions.
type Expr interface {
	Node
	exprNode()
}

// Modifiers are the storage and inheritance qualifiers of a member.
type Modifiers uint16

const (
	ModStream Modifiers = 1 << iota
	ModStage
	ModStatic
	ModConst
	ModOverride
	ModAbstract
	ModClone
)

var modifierWords = []struct {
	mod  Modifiers
	word string
}{
	{ModStream, "stream"},
	{ModStage, "stage"},
	{ModStatic, "static"},
	{ModConst, "const"},
	{ModOverride, "override"},
	{ModAbstract, "abstract"},
	{ModClone, "clone"},
}

// Has reports whether all bits of m2 are set.
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

// TypeName is a reference to a type as written in source.
type TypeName struct {
	Name string
	// Args holds generic arguments, e.g. ["float", "3"] for vector<float,3>.
	Args []string
	// ArraySize is set for array types written as float[4].
	ArraySize Expr
	Span      diag.Span
}

func (t *TypeName) Pos() diag.Span { return t.Span }

// ---------------------------------------------------------------------------
// Declarations

// ShaderDecl is a shader class with optional base shaders.
type ShaderDecl struct {
	Name    string
	Bases   []string
	Members []Decl
	Span    diag.Span
}

func (d *ShaderDecl) Pos() diag.Span { return d.Span }
func (d *ShaderDecl) declNode()      {}

// StructDecl declares a struct type.
type StructDecl struct {
	Name   string
	Fields []*VariableDecl
	Span   diag.Span
}

func (d *StructDecl) Pos() diag.Span { return d.Span }
func (d *StructDecl) declNode()      {}

// VariableDecl declares a variable, member, field or effect parameter.
// As a statement it is a local declaration.
type VariableDecl struct {
	Modifiers Modifiers
	Type      *TypeName
	Name      string
	ArraySize Expr
	Semantic  string
	Value     Expr
	Span      diag.Span
}

func (d *VariableDecl) Pos() diag.Span { return d.Span }
func (d *VariableDecl) declNode()      {}
func (d *VariableDecl) stmtNode()      {}

// Param is a method parameter.
type Param struct {
	Qualifier string // "", "in", "out" or "inout"
	Type      *TypeName
	Name      string
	Semantic  string
	Span      diag.Span
}

func (p *Param) Pos() diag.Span { return p.Span }

// MethodDecl declares a method.
type MethodDecl struct {
	Modifiers Modifiers
	Result    *TypeName
	Name      string
	Params    []*Param
	Semantic  string
	Body      *Block
	Span      diag.Span
}

func (d *MethodDecl) Pos() diag.Span { return d.Span }
func (d *MethodDecl) declNode()      {}

// CBufferDecl groups uniform members.
type CBufferDecl struct {
	Name    string
	Members []*VariableDecl
	Span    diag.Span
}

func (d *CBufferDecl) Pos() diag.Span { return d.Span }
func (d *CBufferDecl) declNode()      {}

// CompositionDecl declares a composition slot filled by an effect.
type CompositionDecl struct {
	Type  string
	Name  string
	Array bool
	Span  diag.Span
}

func (d *CompositionDecl) Pos() diag.Span { return d.Span }
func (d *CompositionDecl) declNode()      {}

// NamespaceDecl groups declarations under a dotted name.
type NamespaceDecl struct {
	Name  string
	Decls []Decl
	Span  diag.Span
}

func (d *NamespaceDecl) Pos() diag.Span { return d.Span }
func (d *NamespaceDecl) declNode()      {}

// EffectDecl is an effect: a program over mixins evaluated with parameters.
type EffectDecl struct {
	Name    string
	Partial bool
	Body    *Block
	Span    diag.Span
}

func (d *EffectDecl) Pos() diag.Span { return d.Span }
func (d *EffectDecl) declNode()      {}

// ParamsDecl declares a block of effect parameters.
type ParamsDecl struct {
	Name   string
	Params []*VariableDecl
	Span   diag.Span
}

func (d *ParamsDecl) Pos() diag.Span { return d.Span }
func (d *ParamsDecl) declNode()      {}

// ---------------------------------------------------------------------------
// Statements

// Block is a braced statement list.
type Block struct {
	Stmts []Stmt
	Span  diag.Span
}

func (s *Block) Pos() diag.Span { return s.Span }
func (s *Block) stmtNode()      {}

// Assign assigns to a plain variable.
type Assign struct {
	Target *VariableName
	Op     string // "=", "+=", ...
	Value  Expr
	Span   diag.Span
}

func (s *Assign) Pos() diag.Span { return s.Span }
func (s *Assign) stmtNode()      {}

// AssignChain assigns through an accessor chain such as a.b.c or a[i].x.
type AssignChain struct {
	Target Expr
	Op     string
	Value  Expr
	Span   diag.Span
}

func (s *AssignChain) Pos() diag.Span { return s.Span }
func (s *AssignChain) stmtNode()      {}

// ExpressionStatement evaluates an expression for its effects.
type ExpressionStatement struct {
	X    Expr
	Span diag.Span
}

func (s *ExpressionStatement) Pos() diag.Span { return s.Span }
func (s *ExpressionStatement) stmtNode()      {}

// Return leaves the current method.
type Return struct {
	Value Expr
	Span  diag.Span
}

func (s *Return) Pos() diag.Span { return s.Span }
func (s *Return) stmtNode()      {}

// If is a conditional statement.
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt
	Span diag.Span
}

func (s *If) Pos() diag.Span { return s.Span }
func (s *If) stmtNode()      {}

// For is a C-style loop.
type For struct {
	Init Stmt
	Cond Expr
	Post Stmt
	Body Stmt
	Span diag.Span
}

func (s *For) Pos() diag.Span { return s.Span }
func (s *For) stmtNode()      {}

// While is a pre-tested loop.
type While struct {
	Cond Expr
	Body Stmt
	Span diag.Span
}

func (s *While) Pos() diag.Span { return s.Span }
func (s *While) stmtNode()      {}

// FlowKind distinguishes jump statements.
type FlowKind uint8

const (
	FlowBreak FlowKind = iota
	FlowContinue
	FlowDiscard
)

func (k FlowKind) String() string {
	switch k {
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	default:
		return "discard"
	}
}

// Flow is break, continue or discard.
type Flow struct {
	Kind FlowKind
	Span diag.Span
}

func (s *Flow) Pos() diag.Span { return s.Span }
func (s *Flow) stmtNode()      {}

// MixinKind selects how a mixin statement composes shaders.
type MixinKind uint8

const (
	MixinDefault MixinKind = iota
	MixinComposeSet
	MixinComposeAdd
	MixinChild
	MixinClone
	MixinMacro
	MixinRemove
)

func (k MixinKind) String() string {
	switch k {
	case MixinDefault:
		return "mixin"
	case MixinComposeSet:
		return "compose"
	case MixinComposeAdd:
		return "compose+"
	case MixinChild:
		return "child"
	case MixinClone:
		return "clone"
	case MixinMacro:
		return "macro"
	case MixinRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Mixin is an effect statement adding a shader, composition, child effect or
// macro. Name is set for assignment tails (compose and macro).
type Mixin struct {
	Kind  MixinKind
	Name  string
	Value Expr
	Span  diag.Span
}

func (s *Mixin) Pos() diag.Span { return s.Span }
func (s *Mixin) stmtNode()      {}

// UsingParams brings an effect parameter block into scope.
type UsingParams struct {
	Name string
	Span diag.Span
}

func (s *UsingParams) Pos() diag.Span { return s.Span }
func (s *UsingParams) stmtNode()      {}

// ShaderSourceDeclaration names a shader source inside an effect.
type ShaderSourceDeclaration struct {
	Name  string
	Value Expr
	Span  diag.Span
}

func (s *ShaderSourceDeclaration) Pos() diag.Span { return s.Span }
func (s *ShaderSourceDeclaration) stmtNode()      {}

// ---------------------------------------------------------------------------
// Expressions

// Operation is a binary operation.
type Operation struct {
	Op    string
	Left  Expr
	Right Expr
	Span  diag.Span
}

func (e *Operation) Pos() diag.Span { return e.Span }
func (e *Operation) exprNode()      {}

// Unary is a prefix or postfix operation.
type Unary struct {
	Op      string
	X       Expr
	Postfix bool
	Span    diag.Span
}

func (e *Unary) Pos() diag.Span { return e.Span }
func (e *Unary) exprNode()      {}

// Ternary is cond ? a : b.
type Ternary struct {
	Cond Expr
	Then Expr
	Else Expr
	Span diag.Span
}

func (e *Ternary) Pos() diag.Span { return e.Span }
func (e *Ternary) exprNode()      {}

// MethodCall calls a method, intrinsic or type constructor. Receiver is set
// for calls such as base.VSMain() or Albedo.Compute().
type MethodCall struct {
	Receiver Expr
	Name     string
	Args     []Expr
	Span     diag.Span
}

func (e *MethodCall) Pos() diag.Span { return e.Span }
func (e *MethodCall) exprNode()      {}

// Number is a numeric literal, kept as written.
type Number struct {
	Text string
	Span diag.Span
}

func (e *Number) Pos() diag.Span { return e.Span }
func (e *Number) exprNode()      {}

// Bool is true or false.
type Bool struct {
	Value bool
	Span  diag.Span
}

func (e *Bool) Pos() diag.Span { return e.Span }
func (e *Bool) exprNode()      {}

// VariableName references a variable by name.
type VariableName struct {
	Name string
	Span diag.Span
}

func (e *VariableName) Pos() diag.Span { return e.Span }
func (e *VariableName) exprNode()      {}

// ChainAccessor is X.Field (field or swizzle).
type ChainAccessor struct {
	X     Expr
	Field string
	Span  diag.Span
}

func (e *ChainAccessor) Pos() diag.Span { return e.Span }
func (e *ChainAccessor) exprNode()      {}

// ArrayAccessor is X[Index].
type ArrayAccessor struct {
	X     Expr
	Index Expr
	Span  diag.Span
}

func (e *ArrayAccessor) Pos() diag.Span { return e.Span }
func (e *ArrayAccessor) exprNode()      {}

// Paren is a parenthesized expression, kept so printing round-trips.
type Paren struct {
	X    Expr
	Span diag.Span
}

func (e *Paren) Pos() diag.Span { return e.Span }
func (e *Paren) exprNode()      {}

// Unparen strips any parentheses around e.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}
