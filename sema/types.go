package sema

import (
	"strconv"
	"strings"
)

// Quantifier is the shape of a SymbolType.
type Quantifier uint8

const (
	Void Quantifier = iota
	Scalar
	Vector
	Matrix
	Struct
	Array
)

func (q Quantifier) String() string {
	switch q {
	case Void:
		return "void"
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case Matrix:
		return "matrix"
	case Struct:
		return "struct"
	case Array:
		return "array"
	default:
		return "quantifier(" + strconv.Itoa(int(q)) + ")"
	}
}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	KindSint ScalarKind = iota
	KindUint
	KindFloat
	KindBool
)

// ScalarType is the element of scalars, vectors and matrices.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

// IsNumeric reports whether s is an integer or floating point type.
func (s ScalarType) IsNumeric() bool { return s.Kind != KindBool }

// Placeholder marks the abstract stream struct types that are replaced by
// concrete per-stage types after emission.
type Placeholder uint8

const (
	PlaceholderNone Placeholder = iota
	PlaceholderStreams
	PlaceholderInput
	PlaceholderOutput
)

func (p Placeholder) String() string {
	switch p {
	case PlaceholderStreams:
		return "Streams"
	case PlaceholderInput:
		return "Input"
	case PlaceholderOutput:
		return "Output"
	default:
		return ""
	}
}

// Field is a struct member.
type Field struct {
	Name     string
	Type     *SymbolType
	Semantic string
}

// SymbolType describes a shader type.
type SymbolType struct {
	Quantifier Quantifier
	// Name is the canonical name: "float", "float3", "float4x4", the struct
	// name, or the element name for arrays.
	Name string
	// Size is [n] for vectors and arrays and [rows, cols] for matrices. An
	// array length of 0 is unresolved.
	Size []int
	// Scalar is the element scalar of scalars, vectors and matrices.
	Scalar ScalarType
	// Elem is the element type of arrays.
	Elem *SymbolType
	// Fields lists struct members in declaration order.
	Fields []Field

	Placeholder Placeholder
}

// Predeclared types.
var (
	VoidType   = &SymbolType{Quantifier: Void, Name: "void"}
	Bool       = scalarType("bool", KindBool, 4)
	Int        = scalarType("int", KindSint, 4)
	UInt       = scalarType("uint", KindUint, 4)
	Float      = scalarType("float", KindFloat, 4)
	Half       = scalarType("half", KindFloat, 2)
	Double     = scalarType("double", KindFloat, 8)
	Long       = scalarType("long", KindSint, 8)
	ULong      = scalarType("ulong", KindUint, 8)
	Short      = scalarType("short", KindSint, 2)
	UShort     = scalarType("ushort", KindUint, 2)
	SByte      = scalarType("sbyte", KindSint, 1)
	Byte       = scalarType("byte", KindUint, 1)
	Float2     = VectorOf(Float, 2)
	Float3     = VectorOf(Float, 3)
	Float4     = VectorOf(Float, 4)
	Float4x4   = MatrixOf(Float, 4, 4)
	Invalid    = &SymbolType{Quantifier: Void, Name: "invalid"}
	scalarList = []*SymbolType{Bool, Int, UInt, Float, Half, Double, Long, ULong, Short, UShort, SByte, Byte}
)

func scalarType(name string, kind ScalarKind, width uint8) *SymbolType {
	return &SymbolType{Quantifier: Scalar, Name: name, Scalar: ScalarType{Kind: kind, Width: width}}
}

// ScalarOf returns the predeclared scalar type for s.
func ScalarOf(s ScalarType) *SymbolType {
	for _, t := range scalarList {
		if t.Scalar == s {
			return t
		}
	}
	return scalarType("scalar"+strconv.Itoa(int(s.Kind))+"_"+strconv.Itoa(int(s.Width)), s.Kind, s.Width)
}

// VectorOf returns the vector of n elements of the scalar type elem.
func VectorOf(elem *SymbolType, n int) *SymbolType {
	return &SymbolType{
		Quantifier: Vector,
		Name:       elem.Name + strconv.Itoa(n),
		Size:       []int{n},
		Scalar:     elem.Scalar,
	}
}

// MatrixOf returns the matrix of rows×cols elements of the scalar type elem.
func MatrixOf(elem *SymbolType, rows, cols int) *SymbolType {
	return &SymbolType{
		Quantifier: Matrix,
		Name:       elem.Name + strconv.Itoa(rows) + "x" + strconv.Itoa(cols),
		Size:       []int{rows, cols},
		Scalar:     elem.Scalar,
	}
}

// ArrayOf returns an array of n elements. n == 0 leaves the length
// unresolved.
func ArrayOf(elem *SymbolType, n int) *SymbolType {
	return &SymbolType{
		Quantifier: Array,
		Name:       elem.String(),
		Size:       []int{n},
		Elem:       elem,
	}
}

// StructOf returns a struct type.
func StructOf(name string, fields []Field) *SymbolType {
	return &SymbolType{Quantifier: Struct, Name: name, Fields: fields}
}

// PlaceholderOf returns a placeholder struct type of the given kind.
func PlaceholderOf(p Placeholder, fields []Field) *SymbolType {
	return &SymbolType{Quantifier: Struct, Name: p.String(), Fields: fields, Placeholder: p}
}

// String renders the type as written in SDSL.
func (t *SymbolType) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Quantifier == Array {
		n := ""
		if t.Size[0] > 0 {
			n = strconv.Itoa(t.Size[0])
		}
		return t.Name + "[" + n + "]"
	}
	return t.Name
}

// Equal reports whether quantifier, name and size agree.
func (t *SymbolType) Equal(o *SymbolType) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.Quantifier != o.Quantifier || t.Name != o.Name || len(t.Size) != len(o.Size) {
		return false
	}
	for i := range t.Size {
		if t.Size[i] != o.Size[i] {
			return false
		}
	}
	return t.Placeholder == o.Placeholder
}

// FieldsEqual compares struct fields by name and type.
func (t *SymbolType) FieldsEqual(o *SymbolType) bool {
	if len(t.Fields) != len(o.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// Resolved reports whether the type and all types it contains are complete.
func (t *SymbolType) Resolved() bool {
	switch t.Quantifier {
	case Array:
		return t.Size[0] > 0 && t.Elem != nil && t.Elem.Resolved()
	case Struct:
		for _, f := range t.Fields {
			if f.Type == nil || !f.Type.Resolved() {
				return false
			}
		}
	}
	return t != Invalid
}

// IsInvalid reports whether t is the error type.
func (t *SymbolType) IsInvalid() bool { return t == nil || t == Invalid }

// IsNumeric reports whether t is a numeric scalar, vector or matrix.
func (t *SymbolType) IsNumeric() bool {
	switch t.Quantifier {
	case Scalar, Vector, Matrix:
		return t.Scalar.IsNumeric()
	}
	return false
}

// IsBool reports whether t is bool or a bool vector.
func (t *SymbolType) IsBool() bool {
	return (t.Quantifier == Scalar || t.Quantifier == Vector) && t.Scalar.Kind == KindBool
}

// Components is the number of scalars in a scalar, vector or matrix.
func (t *SymbolType) Components() int {
	switch t.Quantifier {
	case Scalar:
		return 1
	case Vector:
		return t.Size[0]
	case Matrix:
		return t.Size[0] * t.Size[1]
	}
	return 0
}

// Element is the scalar type of t's components.
func (t *SymbolType) Element() *SymbolType {
	return ScalarOf(t.Scalar)
}

// WithScalar returns t's shape with another element scalar, e.g. the bool
// vector produced by comparing two float vectors.
func (t *SymbolType) WithScalar(s *SymbolType) *SymbolType {
	switch t.Quantifier {
	case Vector:
		return VectorOf(s, t.Size[0])
	case Matrix:
		return MatrixOf(s, t.Size[0], t.Size[1])
	}
	return s
}

// Field returns the index of the named struct field, or -1.
func (t *SymbolType) Field(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Key is a structural key: types with equal keys are the same SPIR-V type.
// Struct keys include the name so that distinct structs stay distinct.
func (t *SymbolType) Key() string {
	var sb strings.Builder
	t.writeKey(&sb)
	return sb.String()
}

func (t *SymbolType) writeKey(sb *strings.Builder) {
	switch t.Quantifier {
	case Void:
		sb.WriteString("void")
	case Scalar:
		sb.WriteString("s")
		sb.WriteString(strconv.Itoa(int(t.Scalar.Kind)))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(t.Scalar.Width)))
	case Vector:
		sb.WriteString("v")
		sb.WriteString(strconv.Itoa(t.Size[0]))
		sb.WriteByte('(')
		t.Element().writeKey(sb)
		sb.WriteByte(')')
	case Matrix:
		sb.WriteString("m")
		sb.WriteString(strconv.Itoa(t.Size[0]))
		sb.WriteByte('x')
		sb.WriteString(strconv.Itoa(t.Size[1]))
		sb.WriteByte('(')
		t.Element().writeKey(sb)
		sb.WriteByte(')')
	case Array:
		sb.WriteString("a")
		sb.WriteString(strconv.Itoa(t.Size[0]))
		sb.WriteByte('(')
		t.Elem.writeKey(sb)
		sb.WriteByte(')')
	case Struct:
		if t.Placeholder != PlaceholderNone {
			sb.WriteString("placeholder:")
		}
		sb.WriteString("struct:")
		sb.WriteString(t.Name)
		sb.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.Name)
			sb.WriteByte(':')
			f.Type.writeKey(sb)
		}
		sb.WriteByte('}')
	}
}
