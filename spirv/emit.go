package spirv

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/tac"
)

// variable is a pointer to memory: a global, a local OpVariable or the
// result of an access chain.
type variable struct {
	id    uint32
	typ   *sema.SymbolType
	class StorageClass
}

type emitter struct {
	ctx       *Context
	buf       *Buffer
	opts      Options
	log       *zap.Logger
	prog      *tac.Program
	globals   map[string]variable
	functions map[string]uint32
	streams   *sema.SymbolType
}

// Emit translates a lowered program into the buffer of ctx and returns it.
// Stream accesses are emitted as pseudo-instructions; the module is not
// executable until its stages are specialized.
func Emit(prog *tac.Program, ctx *Context, opts Options) (*Buffer, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := &emitter{
		ctx:       ctx,
		buf:       ctx.Buffer(),
		opts:      opts,
		log:       opts.Logger.Named("spirv"),
		prog:      prog,
		globals:   make(map[string]variable),
		functions: make(map[string]uint32),
		streams:   prog.Streams,
	}
	e.buf.Version = opts.Version
	e.buf.AddCapability(CapabilityShader)
	if len(e.buf.Sections[SectionMemoryModel]) == 0 {
		e.buf.Add(SectionMemoryModel, OpMemoryModel, uint32(AddressingModelLogical), uint32(MemoryModelGLSL450))
	}

	if err := e.emitGlobals(); err != nil {
		return nil, err
	}
	for _, fn := range prog.Functions {
		if err := e.emitFunction(fn); err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	for name := range e.functions {
		if prog.Function(name) == nil {
			return nil, diag.Internalf("call to undefined function %s", name)
		}
	}
	e.log.Debug("emitted module",
		zap.Int("functions", len(prog.Functions)),
		zap.Int("globals", len(prog.Globals)),
		zap.Uint32("bound", ctx.Bound))
	if opts.Validation {
		if err := Validate(e.buf); err != nil {
			return nil, err
		}
	}
	return e.buf, nil
}

func (e *emitter) function(name string) uint32 {
	id, ok := e.functions[name]
	if !ok {
		id = e.ctx.NextID()
		e.functions[name] = id
	}
	return id
}

func (e *emitter) emitGlobals() error {
	for _, cb := range e.prog.CBuffers {
		id, err := e.ctx.Block(cb.Name, cb.Type, cb.Binding)
		if err != nil {
			return fmt.Errorf("cbuffer %s: %w", cb.Name, err)
		}
		e.globals[cb.Name] = variable{id: id, typ: cb.Type, class: StorageClassUniform}
	}

	// Global initializers are constants and never need a function.
	init := &fnEmitter{emitter: e, values: map[string]uint32{}, types: map[string]*sema.SymbolType{}}
	for _, r := range e.prog.Init {
		c, ok := r.(*tac.Constant)
		if !ok {
			return diag.Internalf("global initializer register %T", r)
		}
		if err := init.constant(c); err != nil {
			return err
		}
	}
	for _, g := range e.prog.Globals {
		var value uint32
		if g.Init != "" {
			value = init.values[g.Init]
			if !e.ctx.IsConstant(value) {
				return fmt.Errorf("%w: initializer of %s is not constant", ErrUnsupported, g.Name)
			}
		}
		id, err := e.ctx.Variable(g.Name, g.Type, StorageClassPrivate, value)
		if err != nil {
			return fmt.Errorf("global %s: %w", g.Name, err)
		}
		e.globals[g.Name] = variable{id: id, typ: g.Type, class: StorageClassPrivate}
	}
	return nil
}

type fnEmitter struct {
	*emitter
	fn     *tac.Function
	values map[string]uint32
	types  map[string]*sema.SymbolType
	vars   map[string]variable
	labels map[string]uint32
	body   []Instruction
	open   bool
}

func (f *fnEmitter) add(op OpCode, words ...uint32) {
	f.body = append(f.body, NewInstruction(op, words...))
}

func (f *fnEmitter) label(name string) uint32 {
	id, ok := f.labels[name]
	if !ok {
		id = f.ctx.NextID()
		f.labels[name] = id
	}
	return id
}

func (f *fnEmitter) value(name string) (uint32, error) {
	if id, ok := f.values[name]; ok {
		return id, nil
	}
	return 0, diag.Internalf("register %s used before definition", name)
}

func (f *fnEmitter) typeID(t *sema.SymbolType) (uint32, error) { return f.ctx.Type(t) }

func (e *emitter) emitFunction(fn *tac.Function) error {
	f := &fnEmitter{
		emitter: e,
		fn:      fn,
		values:  make(map[string]uint32),
		types:   make(map[string]*sema.SymbolType),
		vars:    make(map[string]variable),
		labels:  make(map[string]uint32),
	}
	result, err := f.typeID(fn.Result)
	if err != nil {
		return err
	}
	params := make([]uint32, len(fn.Params))
	for i, p := range fn.Params {
		if params[i], err = f.typeID(p.Type); err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
	}
	id := e.function(fn.Name)
	e.buf.AddName(id, fn.Name)
	f.add(OpFunction, result, id, 0, e.ctx.FunctionType(result, params))
	for i, p := range fn.Params {
		pid := e.ctx.NextID()
		f.add(OpFunctionParameter, params[i], pid)
		f.values[p.Name] = pid
		f.types[p.Name] = p.Type
		if e.opts.Debug {
			e.buf.AddName(pid, p.Name)
		}
	}

	regs := fn.Registers
	entry, ok := regs[0].(*tac.Label)
	if !ok {
		return diag.Internalf("function %s does not start with a label", fn.Name)
	}
	f.add(OpLabel, f.label(entry.Name))
	f.open = true
	// Variables must open the entry block.
	for _, r := range regs {
		d, ok := r.(*tac.Declare)
		if !ok {
			continue
		}
		ptr, err := e.ctx.Pointer(StorageClassFunction, d.Type)
		if err != nil {
			return fmt.Errorf("local %s: %w", d.Name, err)
		}
		vid := e.ctx.NextID()
		f.add(OpVariable, ptr, vid, uint32(StorageClassFunction))
		f.vars[d.Name] = variable{id: vid, typ: d.Type, class: StorageClassFunction}
		if e.opts.Debug {
			e.buf.AddName(vid, d.Name)
		}
	}
	for _, r := range regs[1:] {
		if err := f.register(r); err != nil {
			return err
		}
	}
	if f.open {
		if fn.Result.Quantifier == sema.Void {
			f.add(OpReturn)
		} else {
			f.add(OpUnreachable)
		}
	}
	f.add(OpFunctionEnd)
	e.buf.Sections[SectionFunction] = append(e.buf.Sections[SectionFunction], f.body...)
	e.log.Debug("emitted function", zap.String("name", fn.Name), zap.Int("instructions", len(f.body)))
	return nil
}

func (f *fnEmitter) register(r tac.Register) error {
	if !f.open {
		if _, ok := r.(*tac.Label); !ok {
			return diag.Internalf("register %T outside a block", r)
		}
	}
	switch r := r.(type) {
	case *tac.Declare:
		return nil
	case *tac.Copy:
		if r.Declare {
			v, err := f.value(r.Source)
			if err != nil {
				return err
			}
			f.values[r.Name] = v
			f.types[r.Name] = r.Type
			return nil
		}
		return f.store(r)
	case *tac.Constant:
		return f.constant(r)
	case *tac.Assign:
		return f.assign(r)
	case *tac.Unary:
		return f.unary(r)
	case *tac.ChainRegister:
		return f.chain(r)
	case *tac.Load:
		return f.load(r)
	case *tac.Extract:
		return f.extract(r)
	case *tac.Shuffle:
		return f.shuffle(r)
	case *tac.VectorIndex:
		return f.vectorIndex(r)
	case *tac.Call:
		if r.Intrinsic != "" {
			return f.intrinsic(r)
		}
		return f.call(r)
	case *tac.Convert:
		return f.convert(r)
	case *tac.Select:
		return f.selectValue(r)
	case *tac.Label:
		id := f.label(r.Name)
		if f.open {
			f.add(OpBranch, id)
		}
		f.add(OpLabel, id)
		f.open = true
		return nil
	case *tac.Jump:
		f.add(OpBranch, f.label(r.Target))
		f.open = false
		return nil
	case *tac.Branch:
		cond, err := f.value(r.Cond)
		if err != nil {
			return err
		}
		if r.Merge != "" {
			f.add(OpSelectionMerge, f.label(r.Merge), 0)
		}
		f.add(OpBranchConditional, cond, f.label(r.True), f.label(r.False))
		f.open = false
		return nil
	case *tac.LoopMerge:
		f.add(OpLoopMerge, f.label(r.Merge), f.label(r.Continue), 0)
		return nil
	case *tac.Return:
		if r.Value == "" {
			f.add(OpReturn)
		} else {
			v, err := f.value(r.Value)
			if err != nil {
				return err
			}
			f.add(OpReturnValue, v)
		}
		f.open = false
		return nil
	case *tac.Discard:
		f.add(OpKill)
		f.open = false
		return nil
	case *tac.EmitVertex:
		f.add(OpSDSLEmitVertex)
		return nil
	}
	return diag.Internalf("unknown register %T", r)
}

// define allocates the result id of a register of type t.
func (f *fnEmitter) define(name string, t *sema.SymbolType) (typ, id uint32, err error) {
	if typ, err = f.typeID(t); err != nil {
		return 0, 0, err
	}
	id = f.ctx.NextID()
	f.values[name] = id
	f.types[name] = t
	return typ, id, nil
}

func (f *fnEmitter) args(names []string) ([]uint32, error) {
	ids := make([]uint32, len(names))
	for i, n := range names {
		id, err := f.value(n)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (f *fnEmitter) constant(c *tac.Constant) error {
	if !c.IsComposite() {
		f.values[c.Name] = f.ctx.Constant(c.Type, c.Bits)
		f.types[c.Name] = c.Type
		return nil
	}
	args, err := f.args(c.Args)
	if err != nil {
		return err
	}
	if len(args) == 1 && f.types[c.Args[0]].Equal(c.Type) {
		f.values[c.Name] = args[0]
		f.types[c.Name] = c.Type
		return nil
	}
	constant := true
	for _, a := range args {
		constant = constant && f.ctx.IsConstant(a)
	}
	if constant {
		id, err := f.constantComposite(c, args)
		if err != nil {
			return err
		}
		f.values[c.Name] = id
		f.types[c.Name] = c.Type
		return nil
	}
	if f.fn == nil {
		return fmt.Errorf("%w: non-constant global initializer", ErrUnsupported)
	}
	if c.Type.Quantifier == sema.Matrix {
		return f.constructMatrix(c, args)
	}
	typ, id, err := f.define(c.Name, c.Type)
	if err != nil {
		return err
	}
	f.add(OpCompositeConstruct, append([]uint32{typ, id}, args...)...)
	return nil
}

// flatten lists the scalar constituents of constant arguments.
func (f *fnEmitter) flatten(names []string, ids []uint32) []uint32 {
	var out []uint32
	for i, id := range ids {
		if t := f.types[names[i]]; t != nil && t.Quantifier == sema.Vector {
			out = append(out, f.ctx.Constituents(id)...)
			continue
		}
		out = append(out, id)
	}
	return out
}

func (f *fnEmitter) constantComposite(c *tac.Constant, args []uint32) (uint32, error) {
	switch c.Type.Quantifier {
	case sema.Vector:
		return f.ctx.Composite(c.Type, f.flatten(c.Args, args))
	case sema.Matrix:
		scalars := f.flatten(c.Args, args)
		rows, cols := c.Type.Size[0], c.Type.Size[1]
		if len(scalars) != rows*cols {
			return 0, diag.Internalf("matrix %s built from %d components", c.Type, len(scalars))
		}
		colType := sema.VectorOf(c.Type.Element(), cols)
		vectors := make([]uint32, rows)
		for r := range rows {
			v, err := f.ctx.Composite(colType, scalars[r*cols:(r+1)*cols])
			if err != nil {
				return 0, err
			}
			vectors[r] = v
		}
		return f.ctx.Composite(c.Type, vectors)
	}
	return f.ctx.Composite(c.Type, args)
}

// constructMatrix builds a matrix row by row; each HLSL row is a SPIR-V
// column.
func (f *fnEmitter) constructMatrix(c *tac.Constant, args []uint32) error {
	rows, cols := c.Type.Size[0], c.Type.Size[1]
	colType := sema.VectorOf(c.Type.Element(), cols)
	colID, err := f.typeID(colType)
	if err != nil {
		return err
	}
	elemID := f.ctx.MustType(c.Type.Element())
	var vectors []uint32
	if len(args) == rows {
		for i, a := range c.Args {
			if !f.types[a].Equal(colType) {
				vectors = nil
				break
			}
			vectors = append(vectors, args[i])
		}
	}
	if vectors == nil {
		var scalars []uint32
		for i, a := range c.Args {
			t := f.types[a]
			if t.Quantifier != sema.Vector {
				scalars = append(scalars, args[i])
				continue
			}
			for k := range t.Size[0] {
				id := f.ctx.NextID()
				f.add(OpCompositeExtract, elemID, id, args[i], uint32(k))
				scalars = append(scalars, id)
			}
		}
		if len(scalars) != rows*cols {
			return diag.Internalf("matrix %s built from %d components", c.Type, len(scalars))
		}
		for r := range rows {
			id := f.ctx.NextID()
			f.add(OpCompositeConstruct, append([]uint32{colID, id}, scalars[r*cols:(r+1)*cols]...)...)
			vectors = append(vectors, id)
		}
	}
	typ, id, err := f.define(c.Name, c.Type)
	if err != nil {
		return err
	}
	f.add(OpCompositeConstruct, append([]uint32{typ, id}, vectors...)...)
	return nil
}

type opSet struct{ float, sint, uint OpCode }

var binaryOps = map[string]opSet{
	"+":  {OpFAdd, OpIAdd, OpIAdd},
	"-":  {OpFSub, OpISub, OpISub},
	"*":  {OpFMul, OpIMul, OpIMul},
	"/":  {OpFDiv, OpSDiv, OpUDiv},
	"%":  {OpFRem, OpSRem, OpUMod},
	"<":  {OpFOrdLessThan, OpSLessThan, OpULessThan},
	">":  {OpFOrdGreaterThan, OpSGreaterThan, OpUGreaterThan},
	"<=": {OpFOrdLessThanEqual, OpSLessThanEqual, OpULessThanEqual},
	">=": {OpFOrdGreaterThanEqual, OpSGreaterThanEqual, OpUGreaterThanEqual},
	"==": {OpFOrdEqual, OpIEqual, OpIEqual},
	"!=": {OpFUnordNotEqual, OpINotEqual, OpINotEqual},
	"&":  {0, OpBitwiseAnd, OpBitwiseAnd},
	"|":  {0, OpBitwiseOr, OpBitwiseOr},
	"^":  {0, OpBitwiseXor, OpBitwiseXor},
	"<<": {0, OpShiftLeftLogical, OpShiftLeftLogical},
	">>": {0, OpShiftRightArithmetic, OpShiftRightLogical},
}

var logicalOps = map[string]OpCode{
	"&&": OpLogicalAnd,
	"||": OpLogicalOr,
	"&":  OpLogicalAnd,
	"|":  OpLogicalOr,
	"^":  OpLogicalNotEqual,
	"==": OpLogicalEqual,
	"!=": OpLogicalNotEqual,
}

func (s opSet) pick(k sema.ScalarKind) OpCode {
	switch k {
	case sema.KindFloat:
		return s.float
	case sema.KindSint:
		return s.sint
	case sema.KindUint:
		return s.uint
	}
	return 0
}

func binaryOp(op string, operand *sema.SymbolType) (OpCode, error) {
	var code OpCode
	if operand.Scalar.Kind == sema.KindBool {
		code = logicalOps[op]
	} else if set, ok := binaryOps[op]; ok {
		code = set.pick(operand.Scalar.Kind)
	}
	if code == 0 {
		return 0, fmt.Errorf("%w: operator %s on %s", ErrUnsupported, op, operand)
	}
	return code, nil
}

func (f *fnEmitter) assign(a *tac.Assign) error {
	code, err := binaryOp(a.Op, a.Operand)
	if err != nil {
		return err
	}
	left, err := f.value(a.Left)
	if err != nil {
		return err
	}
	right, err := f.value(a.Right)
	if err != nil {
		return err
	}
	if a.Operand.Quantifier == sema.Matrix {
		return f.perColumn(a.Name, a.Type, code, left, right)
	}
	typ, id, err := f.define(a.Name, a.Type)
	if err != nil {
		return err
	}
	f.add(code, typ, id, left, right)
	return nil
}

// perColumn applies a component-wise operation to each column of one or
// two matrices. right is 0 for unary operations.
func (f *fnEmitter) perColumn(name string, t *sema.SymbolType, code OpCode, left, right uint32) error {
	colID, err := f.typeID(sema.VectorOf(t.Element(), t.Size[1]))
	if err != nil {
		return err
	}
	cols := make([]uint32, t.Size[0])
	for i := range cols {
		l := f.ctx.NextID()
		f.add(OpCompositeExtract, colID, l, left, uint32(i))
		cols[i] = f.ctx.NextID()
		if right == 0 {
			f.add(code, colID, cols[i], l)
			continue
		}
		r := f.ctx.NextID()
		f.add(OpCompositeExtract, colID, r, right, uint32(i))
		f.add(code, colID, cols[i], l, r)
	}
	typ, id, err := f.define(name, t)
	if err != nil {
		return err
	}
	f.add(OpCompositeConstruct, append([]uint32{typ, id}, cols...)...)
	return nil
}

func (f *fnEmitter) unary(u *tac.Unary) error {
	src, err := f.value(u.Source)
	if err != nil {
		return err
	}
	var code OpCode
	switch u.Op {
	case "-":
		code = OpSNegate
		if u.Type.Scalar.Kind == sema.KindFloat {
			code = OpFNegate
		}
	case "!":
		code = OpLogicalNot
	case "~":
		code = OpNot
	default:
		return fmt.Errorf("%w: unary %s", ErrUnsupported, u.Op)
	}
	if u.Type.Quantifier == sema.Matrix {
		return f.perColumn(u.Name, u.Type, code, src, 0)
	}
	typ, id, err := f.define(u.Name, u.Type)
	if err != nil {
		return err
	}
	f.add(code, typ, id, src)
	return nil
}

// streamsPointer emits a fresh marker for the streams variable.
func (f *fnEmitter) streamsPointer() (variable, error) {
	if f.streams == nil {
		return variable{}, diag.Internalf("stream access without stream members")
	}
	ptr, err := f.ctx.Pointer(StorageClassPrivate, f.streams)
	if err != nil {
		return variable{}, err
	}
	id := f.ctx.NextID()
	f.add(OpSDSLStreams, ptr, id)
	return variable{id: id, typ: f.streams, class: StorageClassPrivate}, nil
}

// pointer resolves the memory a name refers to.
func (f *fnEmitter) pointer(name string) (variable, error) {
	if v, ok := f.vars[name]; ok {
		return v, nil
	}
	if v, ok := f.globals[name]; ok {
		return v, nil
	}
	if name == tac.StreamsBase {
		return f.streamsPointer()
	}
	return variable{}, diag.Internalf("%s is not addressable", name)
}

// pointee returns the type id a pointer of class points to for t. Uniform
// aggregates use their laid out types.
func (f *fnEmitter) pointee(class StorageClass, t *sema.SymbolType) (uint32, error) {
	if class == StorageClassUniform {
		return f.ctx.BlockType(t)
	}
	return f.ctx.Type(t)
}

func (f *fnEmitter) chain(c *tac.ChainRegister) error {
	base, err := f.pointer(c.Base)
	if err != nil {
		return err
	}
	if c.Stream != "" {
		if c.Base != tac.StreamsBase {
			return diag.Internalf("stream field %s on %s", c.Stream, c.Base)
		}
		i := f.streams.Field(c.Stream)
		if i < 0 {
			return diag.Internalf("unknown stream %s", c.Stream)
		}
		ft := f.streams.Fields[i].Type
		ptr, err := f.ctx.Pointer(StorageClassPrivate, ft)
		if err != nil {
			return err
		}
		id := f.ctx.NextID()
		f.add(OpSDSLMemberAccess, append([]uint32{ptr, id, base.id}, EncodeString(c.Stream)...)...)
		base = variable{id: id, typ: ft, class: StorageClassPrivate}
	}
	if len(c.Path) == 0 {
		f.vars[c.Name] = variable{id: base.id, typ: c.Type, class: base.class}
		return nil
	}
	elem, err := f.pointee(base.class, c.Type)
	if err != nil {
		return err
	}
	ptr := f.ctx.PointerTo(base.class, elem)
	words := []uint32{ptr, 0, base.id}
	for _, ix := range c.Path {
		if ix.Reg != "" {
			v, err := f.value(ix.Reg)
			if err != nil {
				return err
			}
			words = append(words, v)
			continue
		}
		words = append(words, f.ctx.Int(ix.Const))
	}
	id := f.ctx.NextID()
	words[1] = id
	f.add(OpAccessChain, words...)
	f.vars[c.Name] = variable{id: id, typ: c.Type, class: base.class}
	return nil
}

func (f *fnEmitter) load(l *tac.Load) error {
	p, err := f.pointer(l.Source)
	if err != nil {
		return err
	}
	typ, err := f.pointee(p.class, l.Type)
	if err != nil {
		return err
	}
	id := f.ctx.NextID()
	f.add(OpLoad, typ, id, p.id)
	if p.class == StorageClassUniform {
		if id, err = f.relayout(id, l.Type); err != nil {
			return err
		}
	}
	f.values[l.Name] = id
	f.types[l.Name] = l.Type
	return nil
}

// relayout copies a value loaded from a uniform block into the regular
// type of t, member by member.
func (f *fnEmitter) relayout(id uint32, t *sema.SymbolType) (uint32, error) {
	var members []*sema.SymbolType
	switch t.Quantifier {
	case sema.Struct:
		for _, fd := range t.Fields {
			members = append(members, fd.Type)
		}
	case sema.Array:
		for range t.Size[0] {
			members = append(members, t.Elem)
		}
	default:
		return id, nil
	}
	parts := make([]uint32, len(members))
	for i, mt := range members {
		mtyp, err := f.ctx.BlockType(mt)
		if err != nil {
			return 0, err
		}
		part := f.ctx.NextID()
		f.add(OpCompositeExtract, mtyp, part, id, uint32(i))
		if parts[i], err = f.relayout(part, mt); err != nil {
			return 0, err
		}
	}
	typ, err := f.typeID(t)
	if err != nil {
		return 0, err
	}
	out := f.ctx.NextID()
	f.add(OpCompositeConstruct, append([]uint32{typ, out}, parts...)...)
	return out, nil
}

func (f *fnEmitter) store(c *tac.Copy) error {
	p, err := f.pointer(c.Name)
	if err != nil {
		return err
	}
	if p.class == StorageClassUniform {
		return diag.Internalf("store to uniform %s", c.Name)
	}
	v, err := f.value(c.Source)
	if err != nil {
		return err
	}
	f.add(OpStore, p.id, v)
	return nil
}

func (f *fnEmitter) extract(x *tac.Extract) error {
	src, err := f.value(x.Source)
	if err != nil {
		return err
	}
	typ, id, err := f.define(x.Name, x.Type)
	if err != nil {
		return err
	}
	words := []uint32{typ, id, src}
	for _, i := range x.Path {
		words = append(words, uint32(i))
	}
	f.add(OpCompositeExtract, words...)
	return nil
}

func (f *fnEmitter) shuffle(s *tac.Shuffle) error {
	first, err := f.value(s.First)
	if err != nil {
		return err
	}
	second, err := f.value(s.Second)
	if err != nil {
		return err
	}
	typ, id, err := f.define(s.Name, s.Type)
	if err != nil {
		return err
	}
	words := []uint32{typ, id, first, second}
	for _, c := range s.Components {
		words = append(words, uint32(c))
	}
	f.add(OpVectorShuffle, words...)
	return nil
}

func (f *fnEmitter) vectorIndex(v *tac.VectorIndex) error {
	base, err := f.value(v.Base)
	if err != nil {
		return err
	}
	index, err := f.value(v.Index)
	if err != nil {
		return err
	}
	typ, id, err := f.define(v.Name, v.Type)
	if err != nil {
		return err
	}
	f.add(OpVectorExtractDynamic, typ, id, base, index)
	return nil
}

func (f *fnEmitter) call(c *tac.Call) error {
	args, err := f.args(c.Args)
	if err != nil {
		return err
	}
	callee := f.function(c.Function)
	typ, id, err := f.define(c.Name, c.Type)
	if err != nil {
		return err
	}
	f.add(OpFunctionCall, append([]uint32{typ, id, callee}, args...)...)
	return nil
}

// splat returns a vector of t's shape with every component set to the
// scalar id, or the scalar itself for scalar t.
func (f *fnEmitter) splat(scalar uint32, t *sema.SymbolType) (uint32, error) {
	if t.Quantifier == sema.Scalar {
		return scalar, nil
	}
	parts := make([]uint32, t.Components())
	for i := range parts {
		parts[i] = scalar
	}
	if f.ctx.IsConstant(scalar) && t.Quantifier == sema.Vector {
		return f.ctx.Composite(t, parts)
	}
	if t.Quantifier != sema.Vector {
		return 0, fmt.Errorf("%w: splat to %s", ErrUnsupported, t)
	}
	typ, err := f.typeID(t)
	if err != nil {
		return 0, err
	}
	id := f.ctx.NextID()
	f.add(OpCompositeConstruct, append([]uint32{typ, id}, parts...)...)
	return id, nil
}

// scalarConst returns a constant of t's element type, splatted to t.
func (f *fnEmitter) scalarConst(t *sema.SymbolType, v float64) (uint32, error) {
	elem := t.Element()
	var bits uint64
	switch elem.Scalar.Kind {
	case sema.KindFloat:
		bits = tac.FloatBits(v, elem.Scalar.Width)
	case sema.KindBool:
		if v != 0 {
			bits = 1
		}
	default:
		bits = uint64(int64(v))
		if w := elem.Scalar.Width; w < 8 {
			bits &= 1<<(uint(w)*8) - 1
		}
	}
	return f.splat(f.ctx.Constant(elem, bits), t)
}

func (f *fnEmitter) convert(c *tac.Convert) error {
	src, err := f.value(c.Source)
	if err != nil {
		return err
	}
	from, to := c.From.Scalar, c.Type.Scalar
	if from == to {
		f.values[c.Name] = src
		f.types[c.Name] = c.Type
		return nil
	}
	if c.Type.Quantifier == sema.Matrix {
		if from.Kind != sema.KindFloat || to.Kind != sema.KindFloat {
			return fmt.Errorf("%w: conversion from %s to %s", ErrUnsupported, c.From, c.Type)
		}
		return f.perColumn(c.Name, c.Type, OpFConvert, src, 0)
	}
	switch {
	case from.Kind == sema.KindBool:
		one, err := f.scalarConst(c.Type, 1)
		if err != nil {
			return err
		}
		zero, err := f.scalarConst(c.Type, 0)
		if err != nil {
			return err
		}
		typ, id, err := f.define(c.Name, c.Type)
		if err != nil {
			return err
		}
		f.add(OpSelect, typ, id, src, one, zero)
		return nil
	case to.Kind == sema.KindBool:
		zero, err := f.scalarConst(c.From, 0)
		if err != nil {
			return err
		}
		code := OpINotEqual
		if from.Kind == sema.KindFloat {
			code = OpFUnordNotEqual
		}
		typ, id, err := f.define(c.Name, c.Type)
		if err != nil {
			return err
		}
		f.add(code, typ, id, src, zero)
		return nil
	}
	var code OpCode
	switch {
	case from.Kind == sema.KindFloat && to.Kind == sema.KindFloat:
		code = OpFConvert
	case from.Kind == sema.KindFloat && to.Kind == sema.KindSint:
		code = OpConvertFToS
	case from.Kind == sema.KindFloat:
		code = OpConvertFToU
	case to.Kind == sema.KindFloat && from.Kind == sema.KindSint:
		code = OpConvertSToF
	case to.Kind == sema.KindFloat:
		code = OpConvertUToF
	case from.Width == to.Width:
		code = OpBitcast
	case from.Kind == sema.KindSint:
		// Sign extension follows the source; a signedness change at a new
		// width is a resize followed by a bitcast.
		code = OpSConvert
	default:
		code = OpUConvert
	}
	if (code == OpSConvert || code == OpUConvert) && from.Kind != to.Kind {
		mid := c.Type.WithScalar(sema.ScalarOf(sema.ScalarType{Kind: from.Kind, Width: to.Width}))
		midTyp, err := f.typeID(mid)
		if err != nil {
			return err
		}
		resized := f.ctx.NextID()
		f.add(code, midTyp, resized, src)
		src, code = resized, OpBitcast
	}
	typ, id, err := f.define(c.Name, c.Type)
	if err != nil {
		return err
	}
	f.add(code, typ, id, src)
	return nil
}

func (f *fnEmitter) selectValue(s *tac.Select) error {
	if s.Type.Quantifier != sema.Scalar && s.Type.Quantifier != sema.Vector {
		return fmt.Errorf("%w: select of %s", ErrUnsupported, s.Type)
	}
	cond, err := f.value(s.Cond)
	if err != nil {
		return err
	}
	if ct := f.types[s.Cond]; s.Type.Quantifier == sema.Vector && (ct == nil || ct.Quantifier == sema.Scalar) {
		if cond, err = f.splat(cond, s.Type.WithScalar(sema.Bool)); err != nil {
			return err
		}
	}
	t, err := f.value(s.True)
	if err != nil {
		return err
	}
	fv, err := f.value(s.False)
	if err != nil {
		return err
	}
	typ, id, err := f.define(s.Name, s.Type)
	if err != nil {
		return err
	}
	f.add(OpSelect, typ, id, cond, t, fv)
	return nil
}

// dump renders a type list for error messages.
func dump(types []*sema.SymbolType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
