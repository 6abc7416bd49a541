package sema

import "strings"

// VectorSwizzle parses a vector swizzle such as "xyz" or "bgra" for a value
// of type t (a vector, or a scalar with only "x"/"r"). It returns the
// component indices.
func VectorSwizzle(t *SymbolType, accessor string) ([]int, bool) {
	size := 1
	switch t.Quantifier {
	case Vector:
		size = t.Size[0]
	case Scalar:
	default:
		return nil, false
	}
	if len(accessor) == 0 || len(accessor) > 4 {
		return nil, false
	}
	var set string
	switch {
	case strings.IndexByte("xyzw", accessor[0]) >= 0:
		set = "xyzw"
	case strings.IndexByte("rgba", accessor[0]) >= 0:
		set = "rgba"
	default:
		return nil, false
	}
	out := make([]int, len(accessor))
	for i := 0; i < len(accessor); i++ {
		c := strings.IndexByte(set, accessor[i])
		if c < 0 || c >= size {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

// MatrixSwizzle parses a matrix swizzle: zero-based "_m01" or one-based
// "_12" elements, concatenated (e.g. "_m00_m11"). It returns (row, col)
// pairs.
func MatrixSwizzle(t *SymbolType, accessor string) ([][2]int, bool) {
	if t.Quantifier != Matrix || !strings.HasPrefix(accessor, "_") {
		return nil, false
	}
	rows, cols := t.Size[0], t.Size[1]
	var out [][2]int
	rest := accessor
	for rest != "" {
		if rest[0] != '_' {
			return nil, false
		}
		rest = rest[1:]
		base := 1
		if strings.HasPrefix(rest, "m") {
			base = 0
			rest = rest[1:]
		}
		if len(rest) < 2 || !isDigit(rest[0]) || !isDigit(rest[1]) {
			return nil, false
		}
		r, c := int(rest[0]-'0')-base, int(rest[1]-'0')-base
		if r < 0 || c < 0 || r >= rows || c >= cols {
			return nil, false
		}
		out = append(out, [2]int{r, c})
		rest = rest[2:]
	}
	if len(out) == 0 || len(out) > 4 {
		return nil, false
	}
	return out, true
}

// swizzleType is the type of n components of t's scalar.
func swizzleType(t *SymbolType, n int) *SymbolType {
	if n == 1 {
		return t.Element()
	}
	return VectorOf(t.Element(), n)
}
