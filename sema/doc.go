// Package sema resolves names and types in parsed SDSL.
//
// The central type is SymbolType, a value describing a shader type. Check
// walks a parsed file, builds the SymbolTable scopes as it goes and records
// its results in an Info: the type of every expression, the symbol every name
// refers to, and how accessors and calls resolved. The syntax tree itself is
// not modified.
//
// Type errors do not stop checking. An expression that fails to check gets
// the expected type when one is known, or Invalid otherwise; Invalid operands
// silence further errors about the same expression.
package sema
