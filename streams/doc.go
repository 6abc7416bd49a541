// Package streams specializes an emitted SPIR-V module for pipeline stages.
//
// A shader reads and writes stream members through the implicit streams
// variable without knowing which stage runs it. Emission leaves those
// accesses as pseudo-instructions over placeholder types. For every
// requested stage the specializer:
//
//   - analyzes which stream members the stage reads and writes and which of
//     them cross the stage interface ([Analyze]);
//   - synthesizes concrete Streams, Input and Output struct types and the
//     interface variables;
//   - duplicates functions that touch streams when more than one stage
//     reaches them ([Duplicator]);
//   - rewrites the pseudo-instructions of each function for its stage
//     ([Patcher]);
//   - generates the entry point wrapper and execution modes.
//
// The result holds no pseudo-instructions and satisfies the identifier
// invariant checked by [spirv.Validate].
package streams
