package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// Section is a logical section of a module, in the order sections appear in
// the binary.
type Section uint8

const (
	SectionCapability Section = iota
	SectionExtension
	SectionExtInstImport
	SectionMemoryModel
	SectionEntryPoint
	SectionExecutionMode
	SectionDebug      // OpString, OpSource, OpName, OpMemberName
	SectionAnnotation // OpDecorate, OpMemberDecorate
	SectionGlobal     // types, constants and global variables
	SectionFunction
	numSections
)

// Instruction is a decoded instruction: the opcode and the words that
// follow the opcode word.
type Instruction struct {
	Op    OpCode
	Words []uint32
}

// NewInstruction builds an instruction that owns a copy of words.
func NewInstruction(op OpCode, words ...uint32) Instruction {
	return Instruction{Op: op, Words: slices.Clone(words)}
}

// Clone returns a deep copy of i.
func (i Instruction) Clone() Instruction {
	return Instruction{Op: i.Op, Words: slices.Clone(i.Words)}
}

// ResultType returns the result type id, or 0.
func (i Instruction) ResultType() uint32 {
	if l, ok := layouts[i.Op]; ok && l.typed && len(i.Words) > 0 {
		return i.Words[0]
	}
	return 0
}

// Result returns the result id, or 0.
func (i Instruction) Result() uint32 {
	l, ok := layouts[i.Op]
	if !ok || !l.result {
		return 0
	}
	k := 0
	if l.typed {
		k = 1
	}
	if k < len(i.Words) {
		return i.Words[k]
	}
	return 0
}

// SetResult replaces the result id of an instruction that has one.
func (i Instruction) SetResult(id uint32) {
	l, ok := layouts[i.Op]
	if !ok || !l.result {
		return
	}
	k := 0
	if l.typed {
		k = 1
	}
	if k < len(i.Words) {
		i.Words[k] = id
	}
}

// IDs calls fn with a pointer to every word of i that references an id,
// including the result type but not the result. Changing *p rewrites i.
func (i Instruction) IDs(fn func(p *uint32)) {
	l, ok := layouts[i.Op]
	if !ok {
		return
	}
	k := 0
	if l.typed && k < len(i.Words) {
		fn(&i.Words[k])
		k++
	}
	if l.result {
		k++
	}
	for _, o := range l.operands {
		if k >= len(i.Words) {
			return
		}
		switch o {
		case kID:
			fn(&i.Words[k])
			k++
		case kLiteral:
			k++
		case kString:
			_, n := DecodeString(i.Words[k:])
			k += n
		case kIDs:
			for ; k < len(i.Words); k++ {
				fn(&i.Words[k])
			}
		case kLiterals:
			k = len(i.Words)
		}
	}
}

// EncodeString encodes a null-terminated UTF-8 string into words.
func EncodeString(s string) []uint32 {
	bytes := append([]byte(s), 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	words := make([]uint32, len(bytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(bytes[i*4:])
	}
	return words
}

// DecodeString decodes a string operand and returns it with the number of
// words it occupies.
func DecodeString(words []uint32) (string, int) {
	var bytes []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(bytes), i + 1
			}
			bytes = append(bytes, c)
		}
	}
	return string(bytes), len(words)
}

// Buffer is a decoded module.
type Buffer struct {
	Version   Version
	Generator uint32
	// Bound is one more than the largest id in use.
	Bound    uint32
	Sections [numSections][]Instruction
}

// NewBuffer creates an empty module.
func NewBuffer(version Version) *Buffer {
	return &Buffer{Version: version, Generator: GeneratorID, Bound: 1}
}

// Add appends an instruction to a section.
func (b *Buffer) Add(s Section, op OpCode, words ...uint32) {
	b.Sections[s] = append(b.Sections[s], NewInstruction(op, words...))
}

// Functions returns the instructions of the function section.
func (b *Buffer) Functions() []Instruction { return b.Sections[SectionFunction] }

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := *b
	for s := range b.Sections {
		out.Sections[s] = make([]Instruction, len(b.Sections[s]))
		for i, inst := range b.Sections[s] {
			out.Sections[s][i] = inst.Clone()
		}
	}
	return &out
}

// Encode produces the binary words of the module.
func (b *Buffer) Encode() []uint32 {
	total := 5
	for _, sec := range b.Sections {
		total += countWords(sec)
	}
	words := make([]uint32, 0, total)
	words = append(words, MagicNumber, b.Version.Word(), b.Generator, b.Bound, 0)
	for _, sec := range b.Sections {
		for _, inst := range sec {
			words = append(words, uint32(len(inst.Words)+1)<<16|uint32(inst.Op))
			words = append(words, inst.Words...)
		}
	}
	return words
}

// Bytes produces the little-endian binary of the module.
func (b *Buffer) Bytes() []byte {
	words := b.Encode()
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// countWords counts total words in instructions.
func countWords(instructions []Instruction) int {
	count := 0
	for _, inst := range instructions {
		count += len(inst.Words) + 1
	}
	return count
}

// ErrInvalidModule is wrapped by decoding errors.
var ErrInvalidModule = errors.New("spirv: invalid module")

// DecodeBytes decodes a little-endian binary module.
func DecodeBytes(data []byte) (*Buffer, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of 4", ErrInvalidModule, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return Decode(words)
}

// Decode rebuilds a buffer from binary words. Every instruction is copied;
// the result does not alias words.
func Decode(words []uint32) (*Buffer, error) {
	if len(words) < 5 {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidModule)
	}
	if words[0] != MagicNumber {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidModule, words[0])
	}
	b := &Buffer{Version: versionFromWord(words[1]), Generator: words[2], Bound: words[3]}
	inFunctions := false
	for off := 5; off < len(words); {
		count := int(words[off] >> 16)
		op := OpCode(words[off] & 0xffff)
		if count == 0 || off+count > len(words) {
			return nil, fmt.Errorf("%w: bad word count %d at word %d", ErrInvalidModule, count, off)
		}
		inst := NewInstruction(op, words[off+1:off+count]...)
		if op == OpFunction {
			inFunctions = true
		}
		s := SectionFunction
		if !inFunctions {
			s = sectionOf(op)
		}
		b.Sections[s] = append(b.Sections[s], inst)
		off += count
	}
	return b, nil
}

func sectionOf(op OpCode) Section {
	switch op {
	case OpCapability:
		return SectionCapability
	case OpExtension:
		return SectionExtension
	case OpExtInstImport:
		return SectionExtInstImport
	case OpMemoryModel:
		return SectionMemoryModel
	case OpEntryPoint:
		return SectionEntryPoint
	case OpExecutionMode:
		return SectionExecutionMode
	case OpSource, OpString, OpName, OpMemberName:
		return SectionDebug
	case OpDecorate, OpMemberDecorate:
		return SectionAnnotation
	}
	return SectionGlobal
}

// FunctionRange locates a function in the function section: Start is the
// index of its OpFunction and End the index after its OpFunctionEnd.
type FunctionRange struct {
	ID         uint32
	Start, End int
}

// FunctionRanges lists the functions in section order.
func (b *Buffer) FunctionRanges() []FunctionRange {
	var out []FunctionRange
	insts := b.Sections[SectionFunction]
	for i := 0; i < len(insts); i++ {
		if insts[i].Op != OpFunction {
			continue
		}
		r := FunctionRange{ID: insts[i].Result(), Start: i}
		for i < len(insts) && insts[i].Op != OpFunctionEnd {
			i++
		}
		r.End = min(i+1, len(insts))
		out = append(out, r)
	}
	return out
}

// Function finds the range of the function with the given id.
func (b *Buffer) Function(id uint32) (FunctionRange, bool) {
	for _, r := range b.FunctionRanges() {
		if r.ID == id {
			return r, true
		}
	}
	return FunctionRange{}, false
}

// Replace substitutes insts for the instructions of r and returns the new
// range.
func (b *Buffer) Replace(r FunctionRange, insts []Instruction) FunctionRange {
	b.Sections[SectionFunction] = slices.Replace(b.Sections[SectionFunction], r.Start, r.End, insts...)
	return FunctionRange{ID: r.ID, Start: r.Start, End: r.Start + len(insts)}
}

// Insert places insts at index at of the function section.
func (b *Buffer) Insert(at int, insts []Instruction) {
	b.Sections[SectionFunction] = slices.Insert(b.Sections[SectionFunction], at, insts...)
}

// Name returns the debug name of id, or "".
func (b *Buffer) Name(id uint32) string {
	for _, inst := range b.Sections[SectionDebug] {
		if inst.Op == OpName && len(inst.Words) > 1 && inst.Words[0] == id {
			s, _ := DecodeString(inst.Words[1:])
			return s
		}
	}
	return ""
}

// AddName names id.
func (b *Buffer) AddName(id uint32, name string) {
	b.Add(SectionDebug, OpName, append([]uint32{id}, EncodeString(name)...)...)
}

// AddMemberName names member m of a struct type.
func (b *Buffer) AddMemberName(id, m uint32, name string) {
	b.Add(SectionDebug, OpMemberName, append([]uint32{id, m}, EncodeString(name)...)...)
}

// Decorate adds a decoration to id.
func (b *Buffer) Decorate(id uint32, d Decoration, params ...uint32) {
	b.Add(SectionAnnotation, OpDecorate, append([]uint32{id, uint32(d)}, params...)...)
}

// DecorateMember adds a decoration to member m of a struct type.
func (b *Buffer) DecorateMember(id, m uint32, d Decoration, params ...uint32) {
	b.Add(SectionAnnotation, OpMemberDecorate, append([]uint32{id, m, uint32(d)}, params...)...)
}

// AddCapability declares a capability once.
func (b *Buffer) AddCapability(c Capability) {
	for _, inst := range b.Sections[SectionCapability] {
		if inst.Words[0] == uint32(c) {
			return
		}
	}
	b.Add(SectionCapability, OpCapability, uint32(c))
}

// AddEntryPoint declares an entry point.
func (b *Buffer) AddEntryPoint(model ExecutionModel, fn uint32, name string, interfaces []uint32) {
	words := append([]uint32{uint32(model), fn}, EncodeString(name)...)
	b.Add(SectionEntryPoint, OpEntryPoint, append(words, interfaces...)...)
}

// AddExecutionMode sets an execution mode of an entry point.
func (b *Buffer) AddExecutionMode(fn uint32, mode ExecutionMode, params ...uint32) {
	b.Add(SectionExecutionMode, OpExecutionMode, append([]uint32{fn, uint32(mode)}, params...)...)
}
