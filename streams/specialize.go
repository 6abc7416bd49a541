package streams

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/sema"
	"github.com/gogpu/sdsl/spirv"
)

// Options configures specialization.
type Options struct {
	// Validation checks the identifier invariant after every pass.
	Validation bool
	Logger     *zap.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{Validation: true, Logger: zap.NewNop()}
}

// EntryPoint is a generated stage entry point.
type EntryPoint struct {
	Stage Stage
	// Name is the OpEntryPoint name, such as "VSMain".
	Name string
	// Function is the id of the generated wrapper function.
	Function uint32
	// Interface lists the Input and Output variables of the stage.
	Interface []uint32
	Binding   *Binding
}

// geometryVertices is the vertex count of geometry shader input and output
// primitives.
const geometryVertices = 3

// Specialize turns an emitted module into one entry point per stage. With
// no stages the module is kept as a library: the pseudo-instructions stay
// and the Linkage capability is declared.
func Specialize(buf *spirv.Buffer, ctx *spirv.Context, info *sema.Info, stages []Stage, opts Options) ([]EntryPoint, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("streams")
	stages = ordered(stages)
	if len(stages) == 0 {
		buf.AddCapability(spirv.CapabilityLinkage)
		return nil, validate(buf, opts, "library")
	}

	bindings, err := Analyze(info, stages)
	if err != nil {
		return nil, err
	}
	graph := callGraph(buf)
	s := &specializer{
		buf:     buf,
		ctx:     ctx,
		info:    info,
		log:     log,
		layouts: make(map[Stage]*Layout),
		dup:     NewDuplicator(ctx),
	}
	s.patcher = NewPatcher(ctx, s.layouts, s.dup, log)

	var entries []EntryPoint
	for _, stage := range stages {
		entry, ok := graph.byName[stage.EntryName()]
		if !ok {
			return nil, fmt.Errorf("%w: %s needs %s", ErrNoEntry, stage, stage.EntryName())
		}
		if m := info.Method(stage.EntryName()); m != nil && len(m.Params) > 0 {
			return nil, fmt.Errorf("%w: %s must not take parameters", ErrStage, m.Name)
		}
		l, err := s.layout(bindings[stage])
		if err != nil {
			return nil, fmt.Errorf("%s layout: %w", stage, err)
		}
		wrapper, err := s.wrapper(stage, l, entry)
		if err != nil {
			return nil, fmt.Errorf("%s entry: %w", stage, err)
		}

		var specialized []uint32
		for _, fn := range graph.reachable(entry) {
			if !graph.dependent[fn] {
				continue
			}
			id, err := s.dup.Visit(buf, fn, stage)
			if err != nil {
				return nil, err
			}
			specialized = append(specialized, id)
		}
		for _, id := range append(specialized, wrapper) {
			r, ok := buf.Function(id)
			if !ok {
				return nil, diag.Internalf("specialize: function %%%d vanished", id)
			}
			if _, err := s.patcher.PatchFunction(buf, r, stage); err != nil {
				return nil, fmt.Errorf("%s: %w", stage, err)
			}
		}

		iface := append(append([]uint32(nil), l.Inputs...), l.Outputs...)
		buf.AddEntryPoint(stage.ExecutionModel(), wrapper, stage.EntryName(), iface)
		s.executionModes(stage, l, wrapper)
		entries = append(entries, EntryPoint{
			Stage:     stage,
			Name:      stage.EntryName(),
			Function:  wrapper,
			Interface: iface,
			Binding:   l.Binding,
		})
		log.Debug("specialized stage",
			zap.Stringer("stage", stage),
			zap.Int("functions", len(specialized)),
			zap.Int("inputs", len(l.Inputs)),
			zap.Int("outputs", len(l.Outputs)))
		if err := validate(buf, opts, stage.String()); err != nil {
			return nil, err
		}
	}

	removed := spirv.EliminateDeadFunctions(buf, ctx.ExtraRoots)
	stripPlaceholders(buf, ctx)
	for _, inst := range buf.Functions() {
		if inst.Op.IsPseudo() {
			return nil, diag.Internalf("specialize: %s left after patching", inst.Op)
		}
	}
	log.Debug("specialized module",
		zap.Int("stages", len(stages)),
		zap.Int("removed functions", removed),
		zap.Int("extra roots", len(ctx.ExtraRoots)),
		zap.Uint32("bound", ctx.Bound))
	return entries, validate(buf, opts, "specialized module")
}

func validate(buf *spirv.Buffer, opts Options, after string) error {
	if !opts.Validation {
		return nil
	}
	if err := spirv.Validate(buf); err != nil {
		return fmt.Errorf("after %s: %w", after, err)
	}
	return nil
}

type specializer struct {
	buf     *spirv.Buffer
	ctx     *spirv.Context
	info    *sema.Info
	log     *zap.Logger
	layouts map[Stage]*Layout
	dup     *Duplicator
	patcher *Patcher
}

// layout declares the struct types and variables of a stage.
func (s *specializer) layout(b *Binding) (*Layout, error) {
	stage := b.Stage
	l := &Layout{Binding: b}
	structOf := func(suffix string, fields []*Field) *sema.SymbolType {
		members := make([]sema.Field, len(fields))
		for i, f := range fields {
			members[i] = sema.Field{Name: f.Name, Type: f.Type, Semantic: f.Semantic}
		}
		return sema.StructOf(stage.Prefix()+"_"+suffix, members)
	}

	var err error
	if fields := b.Streams(); len(fields) > 0 {
		streams := structOf("STREAMS", fields)
		if l.Streams, err = s.ctx.Type(streams); err != nil {
			return nil, err
		}
		if l.Variable, err = s.ctx.Variable(stage.Prefix()+"_streams", streams, spirv.StorageClassPrivate, 0); err != nil {
			return nil, err
		}
	}
	if in := b.Inputs(); len(in) > 0 {
		if l.Input, err = s.ctx.Type(structOf("INPUT", in)); err != nil {
			return nil, err
		}
	}
	if out := b.Outputs(); len(out) > 0 {
		if l.Output, err = s.ctx.Type(structOf("OUTPUT", out)); err != nil {
			return nil, err
		}
	}
	if stage == Geometry {
		s.buf.AddCapability(spirv.CapabilityGeometry)
	}

	for _, f := range b.Inputs() {
		t := f.Type
		if stage == Geometry {
			t = sema.ArrayOf(t, geometryVertices)
		}
		id, err := s.ctx.Variable("in_"+stage.Prefix()+"_"+f.Name, t, spirv.StorageClassInput, 0)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", f.Name, err)
		}
		if bi, ok := builtin(f.Semantic, stage, false); ok {
			s.buf.Decorate(id, spirv.DecorationBuiltIn, uint32(bi))
		} else {
			s.buf.Decorate(id, spirv.DecorationLocation, uint32(f.Location))
			if stage == Pixel && f.Type.Scalar.Kind != sema.KindFloat {
				s.buf.Decorate(id, spirv.DecorationFlat)
			}
		}
		l.Inputs = append(l.Inputs, id)
	}
	for _, f := range b.Outputs() {
		id, err := s.ctx.Variable("out_"+stage.Prefix()+"_"+f.Name, f.Type, spirv.StorageClassOutput, 0)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", f.Name, err)
		}
		if bi, ok := builtin(f.Semantic, stage, true); ok {
			s.buf.Decorate(id, spirv.DecorationBuiltIn, uint32(bi))
		} else {
			s.buf.Decorate(id, spirv.DecorationLocation, uint32(f.Location))
		}
		l.Outputs = append(l.Outputs, id)
	}
	s.layouts[stage] = l
	return l, nil
}

// wrapper appends the entry function of a stage. It loads the inputs,
// expands them into the streams, calls the entry method, and contracts the
// streams into the outputs. Geometry outputs are written by vertex
// emission instead. A stage without streams only calls its entry method.
func (s *specializer) wrapper(stage Stage, l *Layout, entry uint32) (uint32, error) {
	ctx := s.ctx
	void := ctx.MustType(sema.VoidType)
	r, ok := s.buf.Function(entry)
	if !ok {
		return 0, diag.Internalf("entry function %%%d not found", entry)
	}
	entryResult := s.buf.Functions()[r.Start].Words[0]

	id := ctx.NextID()
	var body []spirv.Instruction
	add := func(op spirv.OpCode, words ...uint32) {
		body = append(body, spirv.NewInstruction(op, words...))
	}
	add(spirv.OpFunction, void, id, 0, ctx.FunctionType(void, nil))
	add(spirv.OpLabel, ctx.NextID())
	if l.Streams == 0 {
		add(spirv.OpFunctionCall, entryResult, ctx.NextID(), entry)
		add(spirv.OpReturn)
		add(spirv.OpFunctionEnd)
		s.buf.Insert(len(s.buf.Functions()), body)
		s.buf.AddName(id, stage.Prefix()+"_main")
		return id, nil
	}

	streamsPH, err := ctx.Type(s.info.Streams)
	if err != nil {
		return 0, err
	}
	streamsPtr := ctx.PointerTo(spirv.StorageClassPrivate, streamsPH)
	expanded := ctx.NextID()
	if inputs := l.Binding.Inputs(); len(inputs) > 0 {
		inputPH, err := ctx.Type(sema.PlaceholderOf(sema.PlaceholderInput, nil))
		if err != nil {
			return 0, err
		}
		values := make([]uint32, len(inputs))
		for k, f := range inputs {
			typ, err := ctx.Type(f.Type)
			if err != nil {
				return 0, err
			}
			ptr := l.Inputs[k]
			if stage == Geometry {
				elem := ctx.PointerTo(spirv.StorageClassInput, typ)
				ptr = ctx.NextID()
				add(spirv.OpAccessChain, elem, ptr, l.Inputs[k], ctx.Int(0))
			}
			values[k] = ctx.NextID()
			add(spirv.OpLoad, typ, values[k], ptr)
		}
		input := ctx.NextID()
		add(spirv.OpCompositeConstruct, append([]uint32{inputPH, input}, values...)...)
		add(spirv.OpSDSLExpand, streamsPH, expanded, input)
	} else {
		add(spirv.OpSDSLExpand, streamsPH, expanded)
	}
	marker := ctx.NextID()
	add(spirv.OpSDSLStreams, streamsPtr, marker)
	add(spirv.OpStore, marker, expanded)
	add(spirv.OpFunctionCall, entryResult, ctx.NextID(), entry)

	switch outputs := l.Binding.Outputs(); {
	case stage == Geometry:
		add(spirv.OpEndPrimitive)
	case len(outputs) > 0:
		outputPH, err := ctx.Type(sema.PlaceholderOf(sema.PlaceholderOutput, nil))
		if err != nil {
			return 0, err
		}
		value := ctx.NextID()
		add(spirv.OpLoad, streamsPH, value, marker)
		contracted := ctx.NextID()
		add(spirv.OpSDSLContract, outputPH, contracted, value)
		for k, f := range outputs {
			typ, err := ctx.Type(f.Type)
			if err != nil {
				return 0, err
			}
			v := ctx.NextID()
			add(spirv.OpCompositeExtract, typ, v, contracted, uint32(k))
			add(spirv.OpStore, l.Outputs[k], v)
		}
	}
	add(spirv.OpReturn)
	add(spirv.OpFunctionEnd)

	s.buf.Insert(len(s.buf.Functions()), body)
	s.buf.AddName(id, stage.Prefix()+"_main")
	return id, nil
}

func (s *specializer) executionModes(stage Stage, l *Layout, fn uint32) {
	switch stage {
	case Pixel:
		s.buf.AddExecutionMode(fn, spirv.ExecutionModeOriginUpperLeft)
		for _, f := range l.Binding.Outputs() {
			if bi, ok := builtin(f.Semantic, stage, true); ok && bi == spirv.BuiltInFragDepth {
				s.buf.AddExecutionMode(fn, spirv.ExecutionModeDepthReplacing)
			}
		}
	case Geometry:
		s.buf.AddExecutionMode(fn, spirv.ExecutionModeTriangles)
		s.buf.AddExecutionMode(fn, spirv.ExecutionModeInvocations, 1)
		s.buf.AddExecutionMode(fn, spirv.ExecutionModeOutputTriangleStrip)
		s.buf.AddExecutionMode(fn, spirv.ExecutionModeOutputVertices, geometryVertices)
	case Compute:
		s.buf.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 1, 1, 1)
	}
}

// graph is the call graph of the emitted module, taken before any
// patching.
type graph struct {
	calls     map[uint32][]uint32
	byName    map[string]uint32
	dependent map[uint32]bool
}

// callGraph records the calls of every function and which functions
// depend on the stream layout: those that use stream pseudo-instructions
// or call a function that does.
func callGraph(buf *spirv.Buffer) *graph {
	g := &graph{
		calls:     make(map[uint32][]uint32),
		byName:    make(map[string]uint32),
		dependent: make(map[uint32]bool),
	}
	insts := buf.Functions()
	for _, r := range buf.FunctionRanges() {
		g.byName[buf.Name(r.ID)] = r.ID
		for _, inst := range insts[r.Start:r.End] {
			switch inst.Op {
			case spirv.OpFunctionCall:
				g.calls[r.ID] = append(g.calls[r.ID], inst.Words[2])
			case spirv.OpSDSLStreams, spirv.OpSDSLMemberAccess, spirv.OpSDSLEmitVertex:
				g.dependent[r.ID] = true
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for fn, callees := range g.calls {
			if g.dependent[fn] {
				continue
			}
			for _, c := range callees {
				if g.dependent[c] {
					g.dependent[fn] = true
					changed = true
					break
				}
			}
		}
	}
	return g
}

// reachable lists entry and its transitive callees in breadth-first order.
func (g *graph) reachable(entry uint32) []uint32 {
	seen := map[uint32]bool{entry: true}
	list := []uint32{entry}
	for i := 0; i < len(list); i++ {
		for _, c := range g.calls[list[i]] {
			if !seen[c] {
				seen[c] = true
				list = append(list, c)
			}
		}
	}
	return list
}

// stripPlaceholders removes the placeholder types, the pointer and function
// types built on them, and their names.
func stripPlaceholders(buf *spirv.Buffer, ctx *spirv.Context) {
	dead := make(map[uint32]bool)
	for id, t := range ctx.TypeOf {
		if t.Placeholder != sema.PlaceholderNone {
			dead[id] = true
		}
	}
	uses := func(inst spirv.Instruction) bool {
		found := false
		inst.IDs(func(p *uint32) { found = found || dead[*p] })
		return found
	}
	globals := buf.Sections[spirv.SectionGlobal][:0]
	for _, inst := range buf.Sections[spirv.SectionGlobal] {
		switch {
		case inst.Op == spirv.OpSDSLPlaceholderType:
			continue
		case (inst.Op == spirv.OpTypePointer || inst.Op == spirv.OpTypeFunction) && uses(inst):
			dead[inst.Result()] = true
			continue
		}
		globals = append(globals, inst)
	}
	buf.Sections[spirv.SectionGlobal] = globals
	for _, sec := range []spirv.Section{spirv.SectionDebug, spirv.SectionAnnotation} {
		kept := buf.Sections[sec][:0]
		for _, inst := range buf.Sections[sec] {
			if len(inst.Words) > 0 && dead[inst.Words[0]] {
				continue
			}
			kept = append(kept, inst)
		}
		buf.Sections[sec] = kept
	}
	for key, id := range ctx.TypeRegistry {
		if dead[id] {
			delete(ctx.TypeRegistry, key)
			delete(ctx.TypeOf, id)
			delete(ctx.Pointers, id)
		}
	}
}
