package diag

// Code identifies a class of diagnostic.
type Code string

// Syntax errors.
const (
	CodeUnexpectedChar   Code = "S0001"
	CodeUnterminated     Code = "S0002"
	CodeInvalidNumber    Code = "S0003"
	CodeExpectedToken    Code = "S0004"
	CodeExpectedExpr     Code = "S0005"
	CodeExpectedType     Code = "S0006"
	CodeExpectedIdent    Code = "S0007"
	CodeExpectedDecl     Code = "S0008"
	CodeExpectedStmt     Code = "S0009"
	CodeInvalidMixin     Code = "S0010"
	CodeInvalidAssignTgt Code = "S0011"
)

// Preprocessor errors.
const (
	CodeUnknownDirective Code = "P0001"
	CodeUnbalancedIf     Code = "P0002"
	CodeBadCondition     Code = "P0003"
	CodeMacroRedefined   Code = "P0004"
)

// Semantic and type errors.
const (
	CodeUndeclared         Code = "T0001"
	CodeRedeclared         Code = "T0002"
	CodeUnknownType        Code = "T0003"
	CodeTypeMismatch       Code = "T0004"
	CodeInvalidAccessor    Code = "T0005"
	CodeInvalidSwizzle     Code = "T0006"
	CodeInvalidOperands    Code = "T0007"
	CodeArgumentCount      Code = "T0008"
	CodeNotCallable        Code = "T0009"
	CodeNotAssignable      Code = "T0010"
	CodeMissingReturn      Code = "T0011"
	CodeInvalidArraySize   Code = "T0012"
	CodeBreakOutsideLoop   Code = "T0013"
	CodeUnknownStream      Code = "T0014"
	CodeNonScalarIndex     Code = "T0015"
	CodeConstructorArity   Code = "T0016"
	CodeConditionNotBool   Code = "T0017"
	CodeUnsupportedFeature Code = "T0018"
)

// Effect and mixin errors.
const (
	CodeUnknownEffect     Code = "E0001"
	CodeUnknownShader     Code = "E0002"
	CodeUnknownParams     Code = "E0003"
	CodeBadEffectExpr     Code = "E0004"
	CodeMixinCycle        Code = "E0005"
	CodeDuplicateMethod   Code = "E0006"
	CodeNothingToOverride Code = "E0007"
	CodeUnknownEntry      Code = "E0008"
)

// Lowering and code generation limits.
const (
	CodeUnsupportedLowering Code = "L0001"
	CodeUnresolvedArray     Code = "L0002"
)
