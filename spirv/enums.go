package spirv

// Capability is a SPIR-V capability.
type Capability uint32

const (
	CapabilityMatrix   Capability = 0
	CapabilityShader   Capability = 1
	CapabilityGeometry Capability = 2
	CapabilityLinkage  Capability = 5
	CapabilityFloat16  Capability = 9
	CapabilityFloat64  Capability = 10
	CapabilityInt64    Capability = 11
	CapabilityInt16    Capability = 22
	CapabilityInt8     Capability = 39
)

// AddressingModel and MemoryModel are the operands of OpMemoryModel.
type (
	AddressingModel uint32
	MemoryModel     uint32
)

const (
	AddressingModelLogical AddressingModel = 0
	MemoryModelGLSL450     MemoryModel     = 1
)

// ExecutionModel is the stage of an entry point.
type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
)

// ExecutionMode configures an entry point.
type ExecutionMode uint32

const (
	ExecutionModeInvocations         ExecutionMode = 0
	ExecutionModeOriginUpperLeft     ExecutionMode = 7
	ExecutionModeDepthReplacing      ExecutionMode = 12
	ExecutionModeLocalSize           ExecutionMode = 17
	ExecutionModeTriangles           ExecutionMode = 22
	ExecutionModeOutputVertices      ExecutionMode = 26
	ExecutionModeOutputTriangleStrip ExecutionMode = 29
)

// StorageClass is where a variable lives.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
)

// Decoration annotates an id or struct member.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationFlat          Decoration = 14
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn is the operand of a BuiltIn decoration.
type BuiltIn uint32

const (
	BuiltInPosition             BuiltIn = 0
	BuiltInPointSize            BuiltIn = 1
	BuiltInPrimitiveID          BuiltIn = 7
	BuiltInFragCoord            BuiltIn = 15
	BuiltInFrontFacing          BuiltIn = 17
	BuiltInSampleID             BuiltIn = 18
	BuiltInFragDepth            BuiltIn = 22
	BuiltInWorkgroupID          BuiltIn = 26
	BuiltInLocalInvocationID    BuiltIn = 27
	BuiltInGlobalInvocationID   BuiltIn = 28
	BuiltInLocalInvocationIndex BuiltIn = 29
	BuiltInVertexIndex          BuiltIn = 42
	BuiltInInstanceIndex        BuiltIn = 43
)

// GLSL.std.450 extended instructions.
const (
	GLSLstd450Round       uint32 = 1
	GLSLstd450Trunc       uint32 = 3
	GLSLstd450FAbs        uint32 = 4
	GLSLstd450SAbs        uint32 = 5
	GLSLstd450FSign       uint32 = 6
	GLSLstd450SSign       uint32 = 7
	GLSLstd450Floor       uint32 = 8
	GLSLstd450Ceil        uint32 = 9
	GLSLstd450Fract       uint32 = 10
	GLSLstd450Sin         uint32 = 13
	GLSLstd450Cos         uint32 = 14
	GLSLstd450Tan         uint32 = 15
	GLSLstd450Asin        uint32 = 16
	GLSLstd450Acos        uint32 = 17
	GLSLstd450Atan        uint32 = 18
	GLSLstd450Atan2       uint32 = 25
	GLSLstd450Pow         uint32 = 26
	GLSLstd450Exp         uint32 = 27
	GLSLstd450Log         uint32 = 28
	GLSLstd450Exp2        uint32 = 29
	GLSLstd450Log2        uint32 = 30
	GLSLstd450Sqrt        uint32 = 31
	GLSLstd450InverseSqrt uint32 = 32
	GLSLstd450FMin        uint32 = 37
	GLSLstd450UMin        uint32 = 38
	GLSLstd450SMin        uint32 = 39
	GLSLstd450FMax        uint32 = 40
	GLSLstd450UMax        uint32 = 41
	GLSLstd450SMax        uint32 = 42
	GLSLstd450FClamp      uint32 = 43
	GLSLstd450UClamp      uint32 = 44
	GLSLstd450SClamp      uint32 = 45
	GLSLstd450FMix        uint32 = 46
	GLSLstd450Step        uint32 = 48
	GLSLstd450SmoothStep  uint32 = 49
	GLSLstd450Length      uint32 = 66
	GLSLstd450Distance    uint32 = 67
	GLSLstd450Cross       uint32 = 68
	GLSLstd450Normalize   uint32 = 69
	GLSLstd450Reflect     uint32 = 71
)

// Names used by the disassembler.
var (
	capabilityNames = map[uint32]string{
		0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation", 5: "Linkage",
		9: "Float16", 10: "Float64", 11: "Int64", 22: "Int16", 39: "Int8",
	}
	storageClassNames = map[uint32]string{
		0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
		4: "Workgroup", 6: "Private", 7: "Function", 12: "StorageBuffer",
	}
	decorationNames = map[uint32]string{
		2: "Block", 4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
		11: "BuiltIn", 14: "Flat", 30: "Location", 33: "Binding", 34: "DescriptorSet",
		35: "Offset",
	}
	builtInNames = map[uint32]string{
		0: "Position", 1: "PointSize", 7: "PrimitiveId", 15: "FragCoord",
		17: "FrontFacing", 18: "SampleId", 22: "FragDepth", 26: "WorkgroupId",
		27: "LocalInvocationId", 28: "GlobalInvocationId", 29: "LocalInvocationIndex",
		42: "VertexIndex", 43: "InstanceIndex",
	}
	executionModelNames = map[uint32]string{
		0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
		3: "Geometry", 4: "Fragment", 5: "GLCompute",
	}
	executionModeNames = map[uint32]string{
		0: "Invocations", 7: "OriginUpperLeft", 12: "DepthReplacing", 17: "LocalSize",
		22: "Triangles", 26: "OutputVertices", 29: "OutputTriangleStrip",
	}
)
