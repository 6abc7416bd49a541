package spirv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/sema"
)

// ErrUnsupported is wrapped by errors for types and operations SPIR-V
// cannot express.
var ErrUnsupported = errors.New("spirv: unsupported")

type constKey struct {
	typ  uint32
	bits uint64
}

// Pointer describes an OpTypePointer.
type Pointer struct {
	Class StorageClass
	Elem  uint32
}

// Context allocates ids and de-duplicates types and constants for one
// module. A Context is not safe for concurrent use; every compilation owns
// its own.
type Context struct {
	// Bound is the next free id.
	Bound uint32
	// TypeRegistry maps structural type keys to type ids.
	TypeRegistry map[string]uint32
	// TypeOf maps type ids back to their types.
	TypeOf map[uint32]*sema.SymbolType
	// Pointers maps pointer type ids to their storage class and pointee.
	Pointers map[uint32]Pointer
	// Snapshots holds the original instructions of functions that were
	// specialized, by function id.
	Snapshots map[uint32][]Instruction
	// ExtraRoots are functions kept by dead function elimination even when
	// no entry point reaches them.
	ExtraRoots []uint32

	buf          *Buffer
	constants    map[constKey]uint32
	composites   map[string]uint32
	constituents map[uint32][]uint32
	values       map[uint32]uint64
	glsl         uint32
}

// NewContext creates a context that emits into buf.
func NewContext(buf *Buffer) *Context {
	c := &Context{
		Bound:        1,
		TypeRegistry: make(map[string]uint32),
		TypeOf:       make(map[uint32]*sema.SymbolType),
		Pointers:     make(map[uint32]Pointer),
		Snapshots:    make(map[uint32][]Instruction),
		buf:          buf,
		constants:    make(map[constKey]uint32),
		composites:   make(map[string]uint32),
		constituents: make(map[uint32][]uint32),
		values:       make(map[uint32]uint64),
	}
	if buf.Bound > c.Bound {
		c.Bound = buf.Bound
	}
	return c
}

// Buffer returns the buffer the context emits into.
func (c *Context) Buffer() *Buffer { return c.buf }

// NextID allocates an id.
func (c *Context) NextID() uint32 {
	id := c.Bound
	c.Bound++
	c.buf.Bound = c.Bound
	return id
}

// GLSL returns the id of the GLSL.std.450 import, adding it on first use.
func (c *Context) GLSL() uint32 {
	if c.glsl == 0 {
		c.glsl = c.NextID()
		c.buf.Add(SectionExtInstImport, OpExtInstImport, append([]uint32{c.glsl}, EncodeString("GLSL.std.450")...)...)
	}
	return c.glsl
}

func (c *Context) global(op OpCode, words ...uint32) {
	c.buf.Add(SectionGlobal, op, words...)
}

// Type returns the id of t, emitting it and the types it contains on first
// use.
func (c *Context) Type(t *sema.SymbolType) (uint32, error) {
	key := t.Key()
	if id, ok := c.TypeRegistry[key]; ok {
		return id, nil
	}
	var id uint32
	switch t.Quantifier {
	case sema.Void:
		if t.IsInvalid() {
			return 0, fmt.Errorf("%w: invalid type", ErrUnsupported)
		}
		id = c.NextID()
		c.global(OpTypeVoid, id)
	case sema.Scalar:
		id = c.scalarType(t.Scalar)
	case sema.Vector:
		elem, err := c.Type(t.Element())
		if err != nil {
			return 0, err
		}
		id = c.NextID()
		c.global(OpTypeVector, id, elem, uint32(t.Size[0]))
	case sema.Matrix:
		if t.Scalar.Kind != sema.KindFloat {
			return 0, fmt.Errorf("%w: matrix of %s", ErrUnsupported, t.Element())
		}
		// An RxC matrix is R columns of C components; mul() swaps operands
		// to match.
		col, err := c.Type(sema.VectorOf(t.Element(), t.Size[1]))
		if err != nil {
			return 0, err
		}
		c.buf.AddCapability(CapabilityMatrix)
		id = c.NextID()
		c.global(OpTypeMatrix, id, col, uint32(t.Size[0]))
	case sema.Array:
		if !t.Resolved() {
			return 0, fmt.Errorf("%w: unresolved array %s", ErrUnsupported, t)
		}
		elem, err := c.Type(t.Elem)
		if err != nil {
			return 0, err
		}
		length := c.Constant(sema.UInt, uint64(t.Size[0]))
		id = c.NextID()
		c.global(OpTypeArray, id, elem, length)
	case sema.Struct:
		if t.Placeholder != sema.PlaceholderNone {
			id = c.NextID()
			c.global(OpSDSLPlaceholderType, id, uint32(t.Placeholder))
			break
		}
		members := make([]uint32, len(t.Fields))
		for i, f := range t.Fields {
			m, err := c.Type(f.Type)
			if err != nil {
				return 0, err
			}
			members[i] = m
		}
		id = c.NextID()
		c.global(OpTypeStruct, append([]uint32{id}, members...)...)
		c.buf.AddName(id, t.Name)
		for i, f := range t.Fields {
			c.buf.AddMemberName(id, uint32(i), f.Name)
		}
	default:
		return 0, fmt.Errorf("%w: type %s", ErrUnsupported, t)
	}
	c.TypeRegistry[key] = id
	c.TypeOf[id] = t
	return id, nil
}

func (c *Context) scalarType(s sema.ScalarType) uint32 {
	id := c.NextID()
	bits := uint32(s.Width) * 8
	switch s.Kind {
	case sema.KindBool:
		c.global(OpTypeBool, id)
	case sema.KindFloat:
		switch s.Width {
		case 2:
			c.buf.AddCapability(CapabilityFloat16)
		case 8:
			c.buf.AddCapability(CapabilityFloat64)
		}
		c.global(OpTypeFloat, id, bits)
	default:
		switch s.Width {
		case 1:
			c.buf.AddCapability(CapabilityInt8)
		case 2:
			c.buf.AddCapability(CapabilityInt16)
		case 8:
			c.buf.AddCapability(CapabilityInt64)
		}
		signed := uint32(0)
		if s.Kind == sema.KindSint {
			signed = 1
		}
		c.global(OpTypeInt, id, bits, signed)
	}
	return id
}

// MustType is Type for types known to be representable, such as scalars.
func (c *Context) MustType(t *sema.SymbolType) uint32 {
	id, err := c.Type(t)
	if err != nil {
		panic(err)
	}
	return id
}

// PointerTo returns the id of a pointer to the type elem.
func (c *Context) PointerTo(class StorageClass, elem uint32) uint32 {
	key := "ptr(" + strconv.Itoa(int(class)) + "," + strconv.FormatUint(uint64(elem), 10) + ")"
	if id, ok := c.TypeRegistry[key]; ok {
		return id
	}
	id := c.NextID()
	c.global(OpTypePointer, id, uint32(class), elem)
	c.TypeRegistry[key] = id
	c.Pointers[id] = Pointer{Class: class, Elem: elem}
	return id
}

// Pointer returns the id of a pointer to t.
func (c *Context) Pointer(class StorageClass, t *sema.SymbolType) (uint32, error) {
	elem, err := c.Type(t)
	if err != nil {
		return 0, err
	}
	return c.PointerTo(class, elem), nil
}

// FunctionType returns the id of a function type.
func (c *Context) FunctionType(result uint32, params []uint32) uint32 {
	var sb strings.Builder
	sb.WriteString("fn(")
	sb.WriteString(strconv.FormatUint(uint64(result), 10))
	for _, p := range params {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(p), 10))
	}
	sb.WriteByte(')')
	key := sb.String()
	if id, ok := c.TypeRegistry[key]; ok {
		return id
	}
	id := c.NextID()
	c.global(OpTypeFunction, append([]uint32{id, result}, params...)...)
	c.TypeRegistry[key] = id
	return id
}

// Constant returns the id of a scalar constant. bits holds IEEE bits for
// floats, two's complement for integers and 0 or 1 for bool.
func (c *Context) Constant(t *sema.SymbolType, bits uint64) uint32 {
	typ := c.MustType(t)
	key := constKey{typ: typ, bits: bits}
	if id, ok := c.constants[key]; ok {
		return id
	}
	id := c.NextID()
	switch {
	case t.Scalar.Kind == sema.KindBool && bits != 0:
		c.global(OpConstantTrue, typ, id)
	case t.Scalar.Kind == sema.KindBool:
		c.global(OpConstantFalse, typ, id)
	case t.Scalar.Width == 8:
		c.global(OpConstant, typ, id, uint32(bits), uint32(bits>>32))
	default:
		word := uint32(bits)
		if t.Scalar.Kind == sema.KindSint && t.Scalar.Width < 4 {
			// Narrow signed literals are sign extended to the full word.
			shift := 32 - uint(t.Scalar.Width)*8
			word = uint32(int32(word<<shift) >> shift)
		} else if t.Scalar.Width < 4 {
			word &= 1<<(uint(t.Scalar.Width)*8) - 1
		}
		c.global(OpConstant, typ, id, word)
	}
	c.constants[key] = id
	c.values[id] = bits
	return id
}

// Int returns the id of a 32-bit signed integer constant.
func (c *Context) Int(v int) uint32 { return c.Constant(sema.Int, uint64(uint32(int32(v)))) }

// Composite returns the id of a constant composite. Composites are keyed
// by their type and constituent ids only; equal composites built from
// distinct constituents stay distinct.
func (c *Context) Composite(t *sema.SymbolType, constituents []uint32) (uint32, error) {
	typ, err := c.Type(t)
	if err != nil {
		return 0, err
	}
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(typ), 10))
	for _, id := range constituents {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	key := sb.String()
	if id, ok := c.composites[key]; ok {
		return id, nil
	}
	id := c.NextID()
	c.global(OpConstantComposite, append([]uint32{typ, id}, constituents...)...)
	c.composites[key] = id
	c.constituents[id] = append([]uint32(nil), constituents...)
	return id, nil
}

// Null returns the id of the zero value of t.
func (c *Context) Null(t *sema.SymbolType) (uint32, error) {
	typ, err := c.Type(t)
	if err != nil {
		return 0, err
	}
	key := "null:" + strconv.FormatUint(uint64(typ), 10)
	if id, ok := c.composites[key]; ok {
		return id, nil
	}
	id := c.NextID()
	c.global(OpConstantNull, typ, id)
	c.composites[key] = id
	return id, nil
}

// IsConstant reports whether id is a constant created by the context.
func (c *Context) IsConstant(id uint32) bool {
	if _, ok := c.values[id]; ok {
		return true
	}
	_, ok := c.constituents[id]
	return ok
}

// Constituents returns the constituents of a constant composite.
func (c *Context) Constituents(id uint32) []uint32 { return c.constituents[id] }

// Variable declares a global variable of type t and names it.
func (c *Context) Variable(name string, t *sema.SymbolType, class StorageClass, init uint32) (uint32, error) {
	ptr, err := c.Pointer(class, t)
	if err != nil {
		return 0, err
	}
	id := c.NextID()
	words := []uint32{ptr, id, uint32(class)}
	if init != 0 {
		words = append(words, init)
	}
	c.global(OpVariable, words...)
	if name != "" {
		c.buf.AddName(id, name)
	}
	return id, nil
}

// Block declares a uniform block variable laid out with std140 rules:
// members are aligned to their base alignment, arrays and structs to 16
// bytes, and matrices are stored row major with a 16 byte stride.
func (c *Context) Block(name string, t *sema.SymbolType, binding int) (uint32, error) {
	typ, _, err := c.blockStruct(t)
	if err != nil {
		return 0, err
	}
	c.buf.Decorate(typ, DecorationBlock)
	ptr := c.PointerTo(StorageClassUniform, typ)
	id := c.NextID()
	c.global(OpVariable, ptr, id, uint32(StorageClassUniform))
	c.buf.AddName(id, name)
	c.buf.Decorate(id, DecorationDescriptorSet, 0)
	c.buf.Decorate(id, DecorationBinding, uint32(binding))
	return id, nil
}

// BlockType returns the laid out type used for t inside uniform blocks.
// Scalars, vectors and matrices share the regular types.
func (c *Context) BlockType(t *sema.SymbolType) (uint32, error) {
	id, _, _, err := c.layout(t)
	return id, err
}

func (c *Context) blockStruct(t *sema.SymbolType) (id uint32, size int, err error) {
	key := "std140:" + t.Key()
	if id, ok := c.TypeRegistry[key]; ok {
		_, size, _ := std140(t)
		return id, size, nil
	}
	members := make([]uint32, len(t.Fields))
	for i, f := range t.Fields {
		if f.Type.Scalar.Kind == sema.KindBool && f.Type.Quantifier != sema.Struct && f.Type.Quantifier != sema.Array {
			return 0, 0, fmt.Errorf("%w: bool member %s in uniform block", ErrUnsupported, f.Name)
		}
		if members[i], _, _, err = c.layout(f.Type); err != nil {
			return 0, 0, err
		}
	}
	id = c.NextID()
	c.global(OpTypeStruct, append([]uint32{id}, members...)...)
	c.buf.AddName(id, t.Name)
	offset := 0
	for i, f := range t.Fields {
		align, fsize, _ := std140(f.Type)
		offset = roundUp(offset, align)
		c.buf.AddMemberName(id, uint32(i), f.Name)
		c.buf.DecorateMember(id, uint32(i), DecorationOffset, uint32(offset))
		if m := matrixOf(f.Type); m != nil {
			c.buf.DecorateMember(id, uint32(i), DecorationRowMajor)
			c.buf.DecorateMember(id, uint32(i), DecorationMatrixStride, 16)
		}
		offset += fsize
	}
	c.TypeRegistry[key] = id
	c.TypeOf[id] = t
	_, size, _ = std140(t)
	return id, size, nil
}

func (c *Context) layout(t *sema.SymbolType) (id uint32, align, size int, err error) {
	align, size, _ = std140(t)
	switch t.Quantifier {
	case sema.Struct:
		id, _, err = c.blockStruct(t)
		return id, align, size, err
	case sema.Array:
		key := "std140:" + t.Key()
		if id, ok := c.TypeRegistry[key]; ok {
			return id, align, size, nil
		}
		elem, _, _, err := c.layout(t.Elem)
		if err != nil {
			return 0, 0, 0, err
		}
		_, _, stride := std140(t)
		length := c.Constant(sema.UInt, uint64(t.Size[0]))
		id = c.NextID()
		c.global(OpTypeArray, id, elem, length)
		c.buf.Decorate(id, DecorationArrayStride, uint32(stride))
		c.TypeRegistry[key] = id
		c.TypeOf[id] = t
		return id, align, size, nil
	}
	id, err = c.Type(t)
	return id, align, size, err
}

func matrixOf(t *sema.SymbolType) *sema.SymbolType {
	for t.Quantifier == sema.Array {
		t = t.Elem
	}
	if t.Quantifier == sema.Matrix {
		return t
	}
	return nil
}

// std140 returns the base alignment and size of t, and for arrays the
// element stride.
func std140(t *sema.SymbolType) (align, size, stride int) {
	w := int(t.Scalar.Width)
	switch t.Quantifier {
	case sema.Scalar:
		return w, w, 0
	case sema.Vector:
		n := t.Size[0]
		if n == 3 {
			return 4 * w, 3 * w, 0
		}
		return n * w, n * w, 0
	case sema.Matrix:
		// Row major: one 16 byte row per column of the HLSL matrix.
		return 16, t.Size[1] * 16, 0
	case sema.Array:
		ea, es, _ := std140(t.Elem)
		stride = roundUp(es, max(ea, 16))
		return max(ea, 16), stride * t.Size[0], stride
	case sema.Struct:
		offset, maxAlign := 0, 16
		for _, f := range t.Fields {
			fa, fs, _ := std140(f.Type)
			offset = roundUp(offset, fa) + fs
			maxAlign = max(maxAlign, fa)
		}
		return maxAlign, roundUp(offset, maxAlign), 0
	}
	return 1, 0, 0
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
