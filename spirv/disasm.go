package spirv

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/sema"
)

var (
	addressingModelNames = map[uint32]string{0: "Logical", 1: "Physical32", 2: "Physical64"}
	memoryModelNames     = map[uint32]string{0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan"}
)

// Disassemble renders buf as SPIR-V assembly text. Ids print as %_<n>.
func Disassemble(buf *Buffer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n")
	fmt.Fprintf(&sb, "; Version: %d.%d\n", buf.Version.Major, buf.Version.Minor)
	fmt.Fprintf(&sb, "; Generator: 0x%08X\n", buf.Generator)
	fmt.Fprintf(&sb, "; Bound: %d\n", buf.Bound)
	fmt.Fprintf(&sb, "; Schema: 0\n\n")
	d := disassembler{floats: make(map[uint32]uint32)}
	for _, sec := range buf.Sections {
		for _, inst := range sec {
			sb.WriteString(d.instruction(inst))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func id(n uint32) string {
	return "%_" + strconv.FormatUint(uint64(n), 10)
}

func lookup(m map[uint32]string, v uint32) string {
	if s, ok := m[v]; ok {
		return s
	}
	return strconv.FormatUint(uint64(v), 10)
}

type disassembler struct {
	// floats maps float type ids to their width, to print constants.
	floats map[uint32]uint32
}

// instruction renders one line in the layout of spirv-dis.
func (d *disassembler) instruction(inst Instruction) string {
	l, ok := layouts[inst.Op]
	if !ok {
		parts := []string{inst.Op.String()}
		for _, w := range inst.Words {
			parts = append(parts, strconv.FormatUint(uint64(w), 10))
		}
		return strings.Repeat(" ", 15) + strings.Join(parts, " ")
	}
	if inst.Op == OpTypeFloat && len(inst.Words) == 2 {
		d.floats[inst.Words[0]] = inst.Words[1]
	}

	words := inst.Words
	var typ, result uint32
	if l.typed && len(words) > 0 {
		typ, words = words[0], words[1:]
	}
	if l.result && len(words) > 0 {
		result, words = words[0], words[1:]
	}
	parts := []string{l.name}
	if l.typed {
		parts = append(parts, id(typ))
	}

	literal := 0
	for _, o := range l.operands {
		if len(words) == 0 {
			break
		}
		switch o {
		case kID:
			parts = append(parts, id(words[0]))
			words = words[1:]
		case kLiteral:
			parts = append(parts, d.literal(inst, literal, words[0]))
			literal++
			words = words[1:]
		case kString:
			s, n := DecodeString(words)
			parts = append(parts, strconv.Quote(s))
			words = words[n:]
		case kIDs:
			for _, w := range words {
				parts = append(parts, id(w))
			}
			words = nil
		case kLiterals:
			if inst.Op == OpConstant {
				parts = append(parts, d.constant(typ, words))
				words = nil
				break
			}
			for _, w := range words {
				parts = append(parts, d.literal(inst, literal, w))
				literal++
			}
			words = nil
		}
	}
	line := strings.Join(parts, " ")
	if l.result {
		return fmt.Sprintf("%12s = %s", id(result), line)
	}
	return strings.Repeat(" ", 15) + line
}

// literal names enumerants by their position among an instruction's
// literal operands.
func (d *disassembler) literal(inst Instruction, pos int, v uint32) string {
	switch inst.Op {
	case OpCapability:
		return lookup(capabilityNames, v)
	case OpMemoryModel:
		if pos == 0 {
			return lookup(addressingModelNames, v)
		}
		return lookup(memoryModelNames, v)
	case OpEntryPoint:
		return lookup(executionModelNames, v)
	case OpExecutionMode:
		if pos == 0 {
			return lookup(executionModeNames, v)
		}
	case OpDecorate, OpMemberDecorate:
		at := 0
		if inst.Op == OpMemberDecorate {
			at = 1
		}
		switch {
		case pos == at:
			return lookup(decorationNames, v)
		case pos == at+1 && inst.Words[at+1] == uint32(DecorationBuiltIn):
			return lookup(builtInNames, v)
		}
	case OpTypePointer, OpVariable:
		return lookup(storageClassNames, v)
	case OpFunction, OpSelectionMerge, OpLoopMerge:
		if v == 0 {
			return "None"
		}
	case OpSDSLPlaceholderType:
		return sema.Placeholder(v).String()
	}
	return strconv.FormatUint(uint64(v), 10)
}

func (d *disassembler) constant(typ uint32, words []uint32) string {
	switch width := d.floats[typ]; {
	case width == 32 && len(words) == 1:
		return strconv.FormatFloat(float64(math.Float32frombits(words[0])), 'g', -1, 32)
	case width == 64 && len(words) == 2:
		return strconv.FormatFloat(math.Float64frombits(uint64(words[1])<<32|uint64(words[0])), 'g', -1, 64)
	case width == 0 && len(words) == 2:
		return strconv.FormatUint(uint64(words[1])<<32|uint64(words[0]), 10)
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strconv.FormatUint(uint64(w), 10)
	}
	return strings.Join(parts, " ")
}
