// Package diag provides source positions, spans and coded diagnostics for the
// SDSL compiler.
//
// Diagnostics are data, not control flow: every stage appends to a List and
// keeps going where it can. A compilation succeeds only when the final List
// carries no errors.
//
// # Codes
//
// Codes are grouped by the stage that reports them:
//
//	S0xxx  syntax (scanner, parser)
//	P0xxx  preprocessor
//	T0xxx  semantic and type errors
//	E0xxx  effect evaluation and mixin linking
//	L0xxx  lowering and code generation limits
//
// Internal invariant violations are not diagnostics. They are returned as
// errors wrapping ErrInternal.
package diag
