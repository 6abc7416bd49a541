package spirv

import "strconv"

// OpCode is a SPIR-V opcode.
type OpCode uint16

const (
	OpNop                    OpCode = 0
	OpUndef                  OpCode = 1
	OpSource                 OpCode = 3
	OpName                   OpCode = 5
	OpMemberName             OpCode = 6
	OpString                 OpCode = 7
	OpExtension              OpCode = 10
	OpExtInstImport          OpCode = 11
	OpExtInst                OpCode = 12
	OpMemoryModel            OpCode = 14
	OpEntryPoint             OpCode = 15
	OpExecutionMode          OpCode = 16
	OpCapability             OpCode = 17
	OpTypeVoid               OpCode = 19
	OpTypeBool               OpCode = 20
	OpTypeInt                OpCode = 21
	OpTypeFloat              OpCode = 22
	OpTypeVector             OpCode = 23
	OpTypeMatrix             OpCode = 24
	OpTypeArray              OpCode = 28
	OpTypeStruct             OpCode = 30
	OpTypePointer            OpCode = 32
	OpTypeFunction           OpCode = 33
	OpConstantTrue           OpCode = 41
	OpConstantFalse          OpCode = 42
	OpConstant               OpCode = 43
	OpConstantComposite      OpCode = 44
	OpConstantNull           OpCode = 46
	OpFunction               OpCode = 54
	OpFunctionParameter      OpCode = 55
	OpFunctionEnd            OpCode = 56
	OpFunctionCall           OpCode = 57
	OpVariable               OpCode = 59
	OpLoad                   OpCode = 61
	OpStore                  OpCode = 62
	OpAccessChain            OpCode = 65
	OpDecorate               OpCode = 71
	OpMemberDecorate         OpCode = 72
	OpVectorExtractDynamic   OpCode = 77
	OpVectorInsertDynamic    OpCode = 78
	OpVectorShuffle          OpCode = 79
	OpCompositeConstruct     OpCode = 80
	OpCompositeExtract       OpCode = 81
	OpCompositeInsert        OpCode = 82
	OpCopyObject             OpCode = 83
	OpTranspose              OpCode = 84
	OpConvertFToU            OpCode = 109
	OpConvertFToS            OpCode = 110
	OpConvertSToF            OpCode = 111
	OpConvertUToF            OpCode = 112
	OpUConvert               OpCode = 113
	OpSConvert               OpCode = 114
	OpFConvert               OpCode = 115
	OpBitcast                OpCode = 124
	OpSNegate                OpCode = 126
	OpFNegate                OpCode = 127
	OpIAdd                   OpCode = 128
	OpFAdd                   OpCode = 129
	OpISub                   OpCode = 130
	OpFSub                   OpCode = 131
	OpIMul                   OpCode = 132
	OpFMul                   OpCode = 133
	OpUDiv                   OpCode = 134
	OpSDiv                   OpCode = 135
	OpFDiv                   OpCode = 136
	OpUMod                   OpCode = 137
	OpSRem                   OpCode = 138
	OpSMod                   OpCode = 139
	OpFRem                   OpCode = 140
	OpFMod                   OpCode = 141
	OpVectorTimesScalar      OpCode = 142
	OpMatrixTimesScalar      OpCode = 143
	OpVectorTimesMatrix      OpCode = 144
	OpMatrixTimesVector      OpCode = 145
	OpMatrixTimesMatrix      OpCode = 146
	OpDot                    OpCode = 148
	OpAny                    OpCode = 154
	OpAll                    OpCode = 155
	OpIsNan                  OpCode = 156
	OpIsInf                  OpCode = 157
	OpLogicalEqual           OpCode = 164
	OpLogicalNotEqual        OpCode = 165
	OpLogicalOr              OpCode = 166
	OpLogicalAnd             OpCode = 167
	OpLogicalNot             OpCode = 168
	OpSelect                 OpCode = 169
	OpIEqual                 OpCode = 170
	OpINotEqual              OpCode = 171
	OpUGreaterThan           OpCode = 172
	OpSGreaterThan           OpCode = 173
	OpUGreaterThanEqual      OpCode = 174
	OpSGreaterThanEqual      OpCode = 175
	OpULessThan              OpCode = 176
	OpSLessThan              OpCode = 177
	OpULessThanEqual         OpCode = 178
	OpSLessThanEqual         OpCode = 179
	OpFOrdEqual              OpCode = 180
	OpFUnordEqual            OpCode = 181
	OpFOrdNotEqual           OpCode = 182
	OpFUnordNotEqual         OpCode = 183
	OpFOrdLessThan           OpCode = 184
	OpFUnordLessThan         OpCode = 185
	OpFOrdGreaterThan        OpCode = 186
	OpFUnordGreaterThan      OpCode = 187
	OpFOrdLessThanEqual      OpCode = 188
	OpFUnordLessThanEqual    OpCode = 189
	OpFOrdGreaterThanEqual   OpCode = 190
	OpFUnordGreaterThanEqual OpCode = 191
	OpShiftRightLogical      OpCode = 194
	OpShiftRightArithmetic   OpCode = 195
	OpShiftLeftLogical       OpCode = 196
	OpBitwiseOr              OpCode = 197
	OpBitwiseXor             OpCode = 198
	OpBitwiseAnd             OpCode = 199
	OpNot                    OpCode = 200
	OpDPdx                   OpCode = 207
	OpDPdy                   OpCode = 208
	OpFwidth                 OpCode = 209
	OpEmitVertex             OpCode = 218
	OpEndPrimitive           OpCode = 219
	OpPhi                    OpCode = 245
	OpLoopMerge              OpCode = 246
	OpSelectionMerge         OpCode = 247
	OpLabel                  OpCode = 248
	OpBranch                 OpCode = 249
	OpBranchConditional      OpCode = 250
	OpKill                   OpCode = 252
	OpReturn                 OpCode = 253
	OpReturnValue            OpCode = 254
	OpUnreachable            OpCode = 255
)

// Stream pseudo-instructions. They only exist between emission and stage
// specialization, which replaces every one of them.
const (
	// OpSDSLPlaceholderType declares an abstract stream struct type:
	// result id, placeholder kind.
	OpSDSLPlaceholderType OpCode = 0xff00 + iota
	// OpSDSLStreams yields a pointer to the streams variable: result type,
	// result id.
	OpSDSLStreams
	// OpSDSLMemberAccess yields a pointer to a stream field by name: result
	// type, result id, streams pointer, name.
	OpSDSLMemberAccess
	// OpSDSLExpand builds a Streams value from an optional Input value.
	OpSDSLExpand
	// OpSDSLContract builds an Output value from a Streams value.
	OpSDSLContract
	// OpSDSLEmitVertex stores the output streams and emits a vertex.
	OpSDSLEmitVertex
)

// IsPseudo reports whether op is a stream pseudo-instruction.
func (op OpCode) IsPseudo() bool { return op >= OpSDSLPlaceholderType && op <= OpSDSLEmitVertex }

func (op OpCode) String() string {
	if l, ok := layouts[op]; ok {
		return l.name
	}
	return "Op" + strconv.Itoa(int(op))
}

// operand is the kind of an operand word sequence.
type operand uint8

const (
	kID operand = iota
	kLiteral
	kString
	// kIDs and kLiterals consume all remaining words.
	kIDs
	kLiterals
)

// layout describes the words following the opcode word.
type layout struct {
	name     string
	typed    bool // first word is a result type id
	result   bool // next word is a result id
	operands []operand
}

func op(name string, typed, result bool, operands ...operand) layout {
	return layout{name: name, typed: typed, result: result, operands: operands}
}

var (
	unaryOperands  = []operand{kID}
	binaryOperands = []operand{kID, kID}
)

var layouts = map[OpCode]layout{
	OpNop:                    op("OpNop", false, false),
	OpUndef:                  op("OpUndef", true, true),
	OpSource:                 op("OpSource", false, false, kLiterals),
	OpName:                   op("OpName", false, false, kID, kString),
	OpMemberName:             op("OpMemberName", false, false, kID, kLiteral, kString),
	OpString:                 op("OpString", false, true, kString),
	OpExtension:              op("OpExtension", false, false, kString),
	OpExtInstImport:          op("OpExtInstImport", false, true, kString),
	OpExtInst:                op("OpExtInst", true, true, kID, kLiteral, kIDs),
	OpMemoryModel:            op("OpMemoryModel", false, false, kLiteral, kLiteral),
	OpEntryPoint:             op("OpEntryPoint", false, false, kLiteral, kID, kString, kIDs),
	OpExecutionMode:          op("OpExecutionMode", false, false, kID, kLiteral, kLiterals),
	OpCapability:             op("OpCapability", false, false, kLiteral),
	OpTypeVoid:               op("OpTypeVoid", false, true),
	OpTypeBool:               op("OpTypeBool", false, true),
	OpTypeInt:                op("OpTypeInt", false, true, kLiteral, kLiteral),
	OpTypeFloat:              op("OpTypeFloat", false, true, kLiteral),
	OpTypeVector:             op("OpTypeVector", false, true, kID, kLiteral),
	OpTypeMatrix:             op("OpTypeMatrix", false, true, kID, kLiteral),
	OpTypeArray:              op("OpTypeArray", false, true, kID, kID),
	OpTypeStruct:             op("OpTypeStruct", false, true, kIDs),
	OpTypePointer:            op("OpTypePointer", false, true, kLiteral, kID),
	OpTypeFunction:           op("OpTypeFunction", false, true, kID, kIDs),
	OpConstantTrue:           op("OpConstantTrue", true, true),
	OpConstantFalse:          op("OpConstantFalse", true, true),
	OpConstant:               op("OpConstant", true, true, kLiterals),
	OpConstantComposite:      op("OpConstantComposite", true, true, kIDs),
	OpConstantNull:           op("OpConstantNull", true, true),
	OpFunction:               op("OpFunction", true, true, kLiteral, kID),
	OpFunctionParameter:      op("OpFunctionParameter", true, true),
	OpFunctionEnd:            op("OpFunctionEnd", false, false),
	OpFunctionCall:           op("OpFunctionCall", true, true, kID, kIDs),
	OpVariable:               op("OpVariable", true, true, kLiteral, kIDs),
	OpLoad:                   op("OpLoad", true, true, kID, kLiterals),
	OpStore:                  op("OpStore", false, false, kID, kID, kLiterals),
	OpAccessChain:            op("OpAccessChain", true, true, kID, kIDs),
	OpDecorate:               op("OpDecorate", false, false, kID, kLiteral, kLiterals),
	OpMemberDecorate:         op("OpMemberDecorate", false, false, kID, kLiteral, kLiteral, kLiterals),
	OpVectorExtractDynamic:   op("OpVectorExtractDynamic", true, true, binaryOperands...),
	OpVectorInsertDynamic:    op("OpVectorInsertDynamic", true, true, kID, kID, kID),
	OpVectorShuffle:          op("OpVectorShuffle", true, true, kID, kID, kLiterals),
	OpCompositeConstruct:     op("OpCompositeConstruct", true, true, kIDs),
	OpCompositeExtract:       op("OpCompositeExtract", true, true, kID, kLiterals),
	OpCompositeInsert:        op("OpCompositeInsert", true, true, kID, kID, kLiterals),
	OpCopyObject:             op("OpCopyObject", true, true, unaryOperands...),
	OpTranspose:              op("OpTranspose", true, true, unaryOperands...),
	OpConvertFToU:            op("OpConvertFToU", true, true, unaryOperands...),
	OpConvertFToS:            op("OpConvertFToS", true, true, unaryOperands...),
	OpConvertSToF:            op("OpConvertSToF", true, true, unaryOperands...),
	OpConvertUToF:            op("OpConvertUToF", true, true, unaryOperands...),
	OpUConvert:               op("OpUConvert", true, true, unaryOperands...),
	OpSConvert:               op("OpSConvert", true, true, unaryOperands...),
	OpFConvert:               op("OpFConvert", true, true, unaryOperands...),
	OpBitcast:                op("OpBitcast", true, true, unaryOperands...),
	OpSNegate:                op("OpSNegate", true, true, unaryOperands...),
	OpFNegate:                op("OpFNegate", true, true, unaryOperands...),
	OpIAdd:                   op("OpIAdd", true, true, binaryOperands...),
	OpFAdd:                   op("OpFAdd", true, true, binaryOperands...),
	OpISub:                   op("OpISub", true, true, binaryOperands...),
	OpFSub:                   op("OpFSub", true, true, binaryOperands...),
	OpIMul:                   op("OpIMul", true, true, binaryOperands...),
	OpFMul:                   op("OpFMul", true, true, binaryOperands...),
	OpUDiv:                   op("OpUDiv", true, true, binaryOperands...),
	OpSDiv:                   op("OpSDiv", true, true, binaryOperands...),
	OpFDiv:                   op("OpFDiv", true, true, binaryOperands...),
	OpUMod:                   op("OpUMod", true, true, binaryOperands...),
	OpSRem:                   op("OpSRem", true, true, binaryOperands...),
	OpSMod:                   op("OpSMod", true, true, binaryOperands...),
	OpFRem:                   op("OpFRem", true, true, binaryOperands...),
	OpFMod:                   op("OpFMod", true, true, binaryOperands...),
	OpVectorTimesScalar:      op("OpVectorTimesScalar", true, true, binaryOperands...),
	OpMatrixTimesScalar:      op("OpMatrixTimesScalar", true, true, binaryOperands...),
	OpVectorTimesMatrix:      op("OpVectorTimesMatrix", true, true, binaryOperands...),
	OpMatrixTimesVector:      op("OpMatrixTimesVector", true, true, binaryOperands...),
	OpMatrixTimesMatrix:      op("OpMatrixTimesMatrix", true, true, binaryOperands...),
	OpDot:                    op("OpDot", true, true, binaryOperands...),
	OpAny:                    op("OpAny", true, true, unaryOperands...),
	OpAll:                    op("OpAll", true, true, unaryOperands...),
	OpIsNan:                  op("OpIsNan", true, true, unaryOperands...),
	OpIsInf:                  op("OpIsInf", true, true, unaryOperands...),
	OpLogicalEqual:           op("OpLogicalEqual", true, true, binaryOperands...),
	OpLogicalNotEqual:        op("OpLogicalNotEqual", true, true, binaryOperands...),
	OpLogicalOr:              op("OpLogicalOr", true, true, binaryOperands...),
	OpLogicalAnd:             op("OpLogicalAnd", true, true, binaryOperands...),
	OpLogicalNot:             op("OpLogicalNot", true, true, unaryOperands...),
	OpSelect:                 op("OpSelect", true, true, kID, kID, kID),
	OpIEqual:                 op("OpIEqual", true, true, binaryOperands...),
	OpINotEqual:              op("OpINotEqual", true, true, binaryOperands...),
	OpUGreaterThan:           op("OpUGreaterThan", true, true, binaryOperands...),
	OpSGreaterThan:           op("OpSGreaterThan", true, true, binaryOperands...),
	OpUGreaterThanEqual:      op("OpUGreaterThanEqual", true, true, binaryOperands...),
	OpSGreaterThanEqual:      op("OpSGreaterThanEqual", true, true, binaryOperands...),
	OpULessThan:              op("OpULessThan", true, true, binaryOperands...),
	OpSLessThan:              op("OpSLessThan", true, true, binaryOperands...),
	OpULessThanEqual:         op("OpULessThanEqual", true, true, binaryOperands...),
	OpSLessThanEqual:         op("OpSLessThanEqual", true, true, binaryOperands...),
	OpFOrdEqual:              op("OpFOrdEqual", true, true, binaryOperands...),
	OpFUnordEqual:            op("OpFUnordEqual", true, true, binaryOperands...),
	OpFOrdNotEqual:           op("OpFOrdNotEqual", true, true, binaryOperands...),
	OpFUnordNotEqual:         op("OpFUnordNotEqual", true, true, binaryOperands...),
	OpFOrdLessThan:           op("OpFOrdLessThan", true, true, binaryOperands...),
	OpFUnordLessThan:         op("OpFUnordLessThan", true, true, binaryOperands...),
	OpFOrdGreaterThan:        op("OpFOrdGreaterThan", true, true, binaryOperands...),
	OpFUnordGreaterThan:      op("OpFUnordGreaterThan", true, true, binaryOperands...),
	OpFOrdLessThanEqual:      op("OpFOrdLessThanEqual", true, true, binaryOperands...),
	OpFUnordLessThanEqual:    op("OpFUnordLessThanEqual", true, true, binaryOperands...),
	OpFOrdGreaterThanEqual:   op("OpFOrdGreaterThanEqual", true, true, binaryOperands...),
	OpFUnordGreaterThanEqual: op("OpFUnordGreaterThanEqual", true, true, binaryOperands...),
	OpShiftRightLogical:      op("OpShiftRightLogical", true, true, binaryOperands...),
	OpShiftRightArithmetic:   op("OpShiftRightArithmetic", true, true, binaryOperands...),
	OpShiftLeftLogical:       op("OpShiftLeftLogical", true, true, binaryOperands...),
	OpBitwiseOr:              op("OpBitwiseOr", true, true, binaryOperands...),
	OpBitwiseXor:             op("OpBitwiseXor", true, true, binaryOperands...),
	OpBitwiseAnd:             op("OpBitwiseAnd", true, true, binaryOperands...),
	OpNot:                    op("OpNot", true, true, unaryOperands...),
	OpDPdx:                   op("OpDPdx", true, true, unaryOperands...),
	OpDPdy:                   op("OpDPdy", true, true, unaryOperands...),
	OpFwidth:                 op("OpFwidth", true, true, unaryOperands...),
	OpEmitVertex:             op("OpEmitVertex", false, false),
	OpEndPrimitive:           op("OpEndPrimitive", false, false),
	OpPhi:                    op("OpPhi", true, true, kIDs),
	OpLoopMerge:              op("OpLoopMerge", false, false, kID, kID, kLiterals),
	OpSelectionMerge:         op("OpSelectionMerge", false, false, kID, kLiteral),
	OpLabel:                  op("OpLabel", false, true),
	OpBranch:                 op("OpBranch", false, false, kID),
	OpBranchConditional:      op("OpBranchConditional", false, false, kID, kID, kID, kLiterals),
	OpKill:                   op("OpKill", false, false),
	OpReturn:                 op("OpReturn", false, false),
	OpReturnValue:            op("OpReturnValue", false, false, kID),
	OpUnreachable:            op("OpUnreachable", false, false),

	OpSDSLPlaceholderType: op("OpSDSLPlaceholderType", false, true, kLiteral),
	OpSDSLStreams:         op("OpSDSLStreams", true, true),
	OpSDSLMemberAccess:    op("OpSDSLMemberAccess", true, true, kID, kString),
	OpSDSLExpand:          op("OpSDSLExpand", true, true, kIDs),
	OpSDSLContract:        op("OpSDSLContract", true, true, kID),
	OpSDSLEmitVertex:      op("OpSDSLEmitVertex", false, false),
}

// IsTerminator reports whether op ends a basic block.
func (op OpCode) IsTerminator() bool {
	switch op {
	case OpBranch, OpBranchConditional, OpKill, OpReturn, OpReturnValue, OpUnreachable:
		return true
	}
	return false
}
