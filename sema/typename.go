package sema

import (
	"strconv"
	"strings"
)

var scalarNames = map[string]*SymbolType{
	"bool":   Bool,
	"int":    Int,
	"uint":   UInt,
	"dword":  UInt,
	"float":  Float,
	"half":   Half,
	"double": Double,
	"long":   Long,
	"ulong":  ULong,
	"short":  Short,
	"int16":  Short,
	"ushort": UShort,
	"uint16": UShort,
	"sbyte":  SByte,
	"int8":   SByte,
	"byte":   Byte,
	"uint8":  Byte,
	"int64":  Long,
	"uint64": ULong,
}

// BuiltinType resolves a predeclared type name: scalars, their vector and
// matrix forms (float3, int2x2), vector<T,N>, matrix<T,R,C> and void.
// It returns nil for names that are not predeclared.
func BuiltinType(name string, args []string) *SymbolType {
	switch name {
	case "void":
		if len(args) == 0 {
			return VoidType
		}
		return nil
	case "vector":
		if len(args) != 2 {
			return nil
		}
		elem := scalarNames[args[0]]
		n, err := strconv.Atoi(args[1])
		if elem == nil || err != nil || n < 1 || n > 4 {
			return nil
		}
		return VectorOf(elem, n)
	case "matrix":
		if len(args) != 3 {
			return nil
		}
		elem := scalarNames[args[0]]
		r, err1 := strconv.Atoi(args[1])
		c, err2 := strconv.Atoi(args[2])
		if elem == nil || err1 != nil || err2 != nil || !validMatrixDim(r) || !validMatrixDim(c) {
			return nil
		}
		return MatrixOf(elem, r, c)
	}
	if len(args) > 0 {
		return nil
	}
	if t, ok := scalarNames[name]; ok {
		return t
	}

	// Split "float4x4" into the scalar prefix and the dimensions.
	i := len(name)
	for i > 0 && (isDigit(name[i-1]) || name[i-1] == 'x') {
		i--
	}
	base, dims := name[:i], name[i:]
	elem, ok := scalarNames[base]
	if !ok || dims == "" || base == "dword" {
		return nil
	}
	if rows, cols, ok := strings.Cut(dims, "x"); ok {
		r, err1 := strconv.Atoi(rows)
		c, err2 := strconv.Atoi(cols)
		if err1 != nil || err2 != nil || !validMatrixDim(r) || !validMatrixDim(c) {
			return nil
		}
		return MatrixOf(elem, r, c)
	}
	n, err := strconv.Atoi(dims)
	if err != nil || n < 1 || n > 4 {
		return nil
	}
	return VectorOf(elem, n)
}

func validMatrixDim(n int) bool { return n >= 2 && n <= 4 }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// LiteralType maps a numeric literal to its scalar type from its form and
// suffix: integers are int (u: uint, l: long, ul: ulong), numbers with a
// fraction or exponent are float (f: float, h: half, d or lf: double).
func LiteralType(text string) (*SymbolType, bool) {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") {
		digits := strings.TrimRight(lower[2:], "ul")
		if digits == "" {
			return nil, false
		}
		return integerSuffix(lower[2+len(digits):])
	}

	end := 0
	isFloat := false
scan:
	for end < len(lower) {
		c := lower[end]
		switch {
		case isDigit(c):
		case c == '.':
			isFloat = true
		case c == 'e' && end+1 < len(lower) && (isDigit(lower[end+1]) || lower[end+1] == '+' || lower[end+1] == '-'):
			isFloat = true
			end++
		default:
			break scan
		}
		end++
	}
	s := lower[end:]
	if !isFloat {
		if t, ok := integerSuffix(s); ok {
			return t, true
		}
	}
	switch s {
	case "", "f":
		if !isFloat && s == "" {
			return Int, true
		}
		return Float, true
	case "h":
		return Half, true
	case "d", "lf":
		return Double, true
	}
	return nil, false
}

func integerSuffix(s string) (*SymbolType, bool) {
	switch s {
	case "":
		return Int, true
	case "u":
		return UInt, true
	case "l":
		return Long, true
	case "ul", "lu":
		return ULong, true
	}
	return nil, false
}
