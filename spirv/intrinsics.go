package spirv

import (
	"fmt"

	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/tac"
)

// glslFloat maps float-only intrinsics to GLSL.std.450 instructions.
var glslFloat = map[string]uint32{
	"sqrt":       GLSLstd450Sqrt,
	"rsqrt":      GLSLstd450InverseSqrt,
	"sin":        GLSLstd450Sin,
	"cos":        GLSLstd450Cos,
	"tan":        GLSLstd450Tan,
	"asin":       GLSLstd450Asin,
	"acos":       GLSLstd450Acos,
	"atan":       GLSLstd450Atan,
	"atan2":      GLSLstd450Atan2,
	"floor":      GLSLstd450Floor,
	"ceil":       GLSLstd450Ceil,
	"frac":       GLSLstd450Fract,
	"round":      GLSLstd450Round,
	"trunc":      GLSLstd450Trunc,
	"exp":        GLSLstd450Exp,
	"exp2":       GLSLstd450Exp2,
	"log":        GLSLstd450Log,
	"log2":       GLSLstd450Log2,
	"pow":        GLSLstd450Pow,
	"step":       GLSLstd450Step,
	"lerp":       GLSLstd450FMix,
	"smoothstep": GLSLstd450SmoothStep,
	"normalize":  GLSLstd450Normalize,
	"reflect":    GLSLstd450Reflect,
	"cross":      GLSLstd450Cross,
}

// glslNumeric maps intrinsics with float, signed and unsigned variants.
var glslNumeric = map[string][3]uint32{
	"min":   {GLSLstd450FMin, GLSLstd450SMin, GLSLstd450UMin},
	"max":   {GLSLstd450FMax, GLSLstd450SMax, GLSLstd450UMax},
	"clamp": {GLSLstd450FClamp, GLSLstd450SClamp, GLSLstd450UClamp},
}

func (f *fnEmitter) intrinsic(c *tac.Call) error {
	args, err := f.args(c.Args)
	if err != nil {
		return err
	}
	var at *sema.SymbolType
	if len(c.ArgTypes) > 0 {
		at = c.ArgTypes[0]
	}
	kind := sema.KindFloat
	if at != nil {
		kind = at.Scalar.Kind
	}
	if inst, ok := glslFloat[c.Intrinsic]; ok {
		return f.ext(c.Name, c.Type, inst, args)
	}
	if set, ok := glslNumeric[c.Intrinsic]; ok {
		return f.ext(c.Name, c.Type, set[variant(kind)], args)
	}

	switch c.Intrinsic {
	case "mul":
		return f.mul(c, args)
	case "saturate":
		zero, err := f.scalarConst(c.Type, 0)
		if err != nil {
			return err
		}
		one, err := f.scalarConst(c.Type, 1)
		if err != nil {
			return err
		}
		return f.ext(c.Name, c.Type, GLSLstd450FClamp, []uint32{args[0], zero, one})
	case "abs":
		switch kind {
		case sema.KindUint:
			return f.alias(c, args[0])
		case sema.KindSint:
			return f.ext(c.Name, c.Type, GLSLstd450SAbs, args)
		}
		return f.ext(c.Name, c.Type, GLSLstd450FAbs, args)
	case "sign":
		switch kind {
		case sema.KindUint:
			zero, err := f.scalarConst(at, 0)
			if err != nil {
				return err
			}
			one, err := f.scalarConst(at, 1)
			if err != nil {
				return err
			}
			cond, err := f.op(OpINotEqual, at.WithScalar(sema.Bool), args[0], zero)
			if err != nil {
				return err
			}
			return f.emit(c.Name, c.Type, OpSelect, cond, one, zero)
		case sema.KindSint:
			return f.ext(c.Name, c.Type, GLSLstd450SSign, args)
		}
		return f.ext(c.Name, c.Type, GLSLstd450FSign, args)
	case "dot":
		if at.Quantifier == sema.Scalar {
			return f.emit(c.Name, c.Type, OpFMul, args...)
		}
		return f.emit(c.Name, c.Type, OpDot, args...)
	case "length":
		if at.Quantifier == sema.Scalar {
			return f.ext(c.Name, c.Type, GLSLstd450FAbs, args)
		}
		return f.ext(c.Name, c.Type, GLSLstd450Length, args)
	case "distance":
		if at.Quantifier == sema.Scalar {
			diff, err := f.op(OpFSub, at, args...)
			if err != nil {
				return err
			}
			return f.ext(c.Name, c.Type, GLSLstd450FAbs, []uint32{diff})
		}
		return f.ext(c.Name, c.Type, GLSLstd450Distance, args)
	case "fmod":
		if c.Type.Quantifier == sema.Matrix {
			return f.perColumn(c.Name, c.Type, OpFRem, args[0], args[1])
		}
		return f.emit(c.Name, c.Type, OpFRem, args...)
	case "ddx", "ddy":
		code := OpDPdx
		if c.Intrinsic == "ddy" {
			code = OpDPdy
		}
		if c.Type.Quantifier == sema.Matrix {
			return f.perColumn(c.Name, c.Type, code, args[0], 0)
		}
		return f.emit(c.Name, c.Type, code, args...)
	case "any", "all":
		if at.Quantifier == sema.Scalar {
			return f.alias(c, args[0])
		}
		code := OpAny
		if c.Intrinsic == "all" {
			code = OpAll
		}
		return f.emit(c.Name, c.Type, code, args...)
	}
	return fmt.Errorf("%w: intrinsic %s(%s)", ErrUnsupported, c.Intrinsic, dump(c.ArgTypes))
}

func variant(k sema.ScalarKind) int {
	switch k {
	case sema.KindSint:
		return 1
	case sema.KindUint:
		return 2
	}
	return 0
}

func (f *fnEmitter) alias(c *tac.Call, id uint32) error {
	f.values[c.Name] = id
	f.types[c.Name] = c.Type
	return nil
}

// emit defines the register name with a single instruction.
func (f *fnEmitter) emit(name string, t *sema.SymbolType, code OpCode, operands ...uint32) error {
	typ, id, err := f.define(name, t)
	if err != nil {
		return err
	}
	f.add(code, append([]uint32{typ, id}, operands...)...)
	return nil
}

// op emits an unnamed instruction and returns its result.
func (f *fnEmitter) op(code OpCode, t *sema.SymbolType, operands ...uint32) (uint32, error) {
	typ, err := f.typeID(t)
	if err != nil {
		return 0, err
	}
	id := f.ctx.NextID()
	f.add(code, append([]uint32{typ, id}, operands...)...)
	return id, nil
}

// ext emits a GLSL.std.450 instruction, column by column for matrices.
func (f *fnEmitter) ext(name string, t *sema.SymbolType, inst uint32, args []uint32) error {
	set := f.ctx.GLSL()
	if t.Quantifier != sema.Matrix {
		return f.emit(name, t, OpExtInst, append([]uint32{set, inst}, args...)...)
	}
	colType := sema.VectorOf(t.Element(), t.Size[1])
	colID, err := f.typeID(colType)
	if err != nil {
		return err
	}
	cols := make([]uint32, t.Size[0])
	for i := range cols {
		words := []uint32{set, inst}
		for _, a := range args {
			col := f.ctx.NextID()
			f.add(OpCompositeExtract, colID, col, a, uint32(i))
			words = append(words, col)
		}
		cols[i] = f.ctx.NextID()
		f.add(OpExtInst, append([]uint32{colID, cols[i]}, words...)...)
	}
	return f.emit(name, t, OpCompositeConstruct, cols...)
}

// mul is the row-vector product. An HLSL RxC matrix is a SPIR-V matrix of R
// columns, so every product swaps its operands.
func (f *fnEmitter) mul(c *tac.Call, args []uint32) error {
	x, y := c.ArgTypes[0], c.ArgTypes[1]
	a, b := args[0], args[1]
	float := x.Scalar.Kind == sema.KindFloat
	switch {
	case x.Quantifier == sema.Scalar && y.Quantifier == sema.Scalar:
		code := OpIMul
		if float {
			code = OpFMul
		}
		return f.emit(c.Name, c.Type, code, a, b)
	case x.Quantifier == sema.Scalar || y.Quantifier == sema.Scalar:
		s, v, vt := a, b, y
		if y.Quantifier == sema.Scalar {
			s, v, vt = b, a, x
		}
		switch {
		case vt.Quantifier == sema.Matrix:
			return f.emit(c.Name, c.Type, OpMatrixTimesScalar, v, s)
		case float:
			return f.emit(c.Name, c.Type, OpVectorTimesScalar, v, s)
		}
		splat, err := f.splat(s, vt)
		if err != nil {
			return err
		}
		return f.emit(c.Name, c.Type, OpIMul, v, splat)
	case x.Quantifier == sema.Vector && y.Quantifier == sema.Vector:
		if float {
			return f.emit(c.Name, c.Type, OpDot, a, b)
		}
		return f.intDot(c, x, a, b)
	case x.Quantifier == sema.Vector && y.Quantifier == sema.Matrix:
		return f.emit(c.Name, c.Type, OpMatrixTimesVector, b, a)
	case x.Quantifier == sema.Matrix && y.Quantifier == sema.Vector:
		return f.emit(c.Name, c.Type, OpVectorTimesMatrix, b, a)
	case x.Quantifier == sema.Matrix && y.Quantifier == sema.Matrix:
		return f.emit(c.Name, c.Type, OpMatrixTimesMatrix, b, a)
	}
	return fmt.Errorf("%w: mul(%s, %s)", ErrUnsupported, x, y)
}

// intDot sums the component products of two integer vectors.
func (f *fnEmitter) intDot(c *tac.Call, t *sema.SymbolType, a, b uint32) error {
	prod, err := f.op(OpIMul, t, a, b)
	if err != nil {
		return err
	}
	elem := t.Element()
	elemID := f.ctx.MustType(elem)
	var sum uint32
	for i := range t.Size[0] {
		part := f.ctx.NextID()
		f.add(OpCompositeExtract, elemID, part, prod, uint32(i))
		if i == 0 {
			sum = part
			continue
		}
		if i == t.Size[0]-1 {
			return f.emit(c.Name, c.Type, OpIAdd, sum, part)
		}
		if sum, err = f.op(OpIAdd, elem, sum, part); err != nil {
			return err
		}
	}
	return f.alias(c, sum)
}
