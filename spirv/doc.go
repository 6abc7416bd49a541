// Package spirv emits, transforms and encodes SPIR-V modules.
//
// A module is held as a decoded Buffer: one instruction list per logical
// section, in the order the SPIR-V specification requires. Passes mutate
// the buffer in place and it is encoded once at the end:
//
//	ctx := spirv.NewContext()
//	buf, err := spirv.Emit(prog, ctx, spirv.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	words := buf.Encode()
//
// The Context owns the id bound, the type registry and the constant cache.
// It is shared by every pass of one compilation and must not be used by two
// compilations at once.
//
// # Streams
//
// Stream variables do not exist in SPIR-V. Emission leaves them abstract:
// placeholder struct types and a small set of pseudo-instructions in an
// unused opcode range (OpSDSLStreams, OpSDSLMemberAccess, OpSDSLExpand,
// OpSDSLContract, OpSDSLEmitVertex). The streams package replaces them
// with concrete per-stage types and variables.
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
