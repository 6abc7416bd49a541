// Package effect evaluates effects into mixin lists and links the mixed
// shaders into a single shader.
//
// An effect is a small program over parameters:
//
//	effect LitEffect
//	{
//	    using params MaterialKeys;
//	    mixin Lighting;
//	    if (MaterialKeys.UseNormalMap)
//	        mixin compose Normals = NormalFromTexture;
//	    mixin macro LIGHT_COUNT = MaterialKeys.LightCount;
//	};
//
// Evaluate runs it for one set of parameter values; Link merges the
// resulting shaders.
package effect

import (
	"strings"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

// Macro is a macro definition produced by "mixin macro".
type Macro struct {
	Name  string
	Value string
}

// Result is an evaluated effect.
type Result struct {
	Effect string
	// Mixins lists shader names in mixin order, without duplicates.
	Mixins []string
	// Compositions maps composition slots to the shaders composed into them.
	Compositions map[string][]string
	// Children lists child effects.
	Children []string
	Macros   []Macro
	// Cloned is set by "mixin clone".
	Cloned bool
}

// Single returns the result of mixing one shader.
func Single(shader string) *Result {
	return &Result{Effect: shader, Mixins: []string{shader}, Compositions: map[string][]string{}}
}

func (r *Result) addMixin(name string) {
	for _, m := range r.Mixins {
		if m == name {
			return
		}
	}
	r.Mixins = append(r.Mixins, name)
}

func (r *Result) removeMixin(name string) bool {
	for i, m := range r.Mixins {
		if m == name {
			r.Mixins = append(r.Mixins[:i], r.Mixins[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Result) setMacro(name, value string) {
	for i := range r.Macros {
		if r.Macros[i].Name == name {
			r.Macros[i].Value = value
			return
		}
	}
	r.Macros = append(r.Macros, Macro{Name: name, Value: value})
}

// MacroMap returns the macros as a map.
func (r *Result) MacroMap() map[string]string {
	m := make(map[string]string, len(r.Macros))
	for _, mac := range r.Macros {
		m[mac.Name] = mac.Value
	}
	return m
}

// index finds the named declarations of a file, including those nested in
// namespaces under both their short and qualified names.
type index struct {
	shaders map[string]*syntax.ShaderDecl
	effects map[string]*syntax.EffectDecl
	params  map[string]*syntax.ParamsDecl
}

func newIndex(file *syntax.File) *index {
	ix := &index{
		shaders: make(map[string]*syntax.ShaderDecl),
		effects: make(map[string]*syntax.EffectDecl),
		params:  make(map[string]*syntax.ParamsDecl),
	}
	ix.add(file.Decls, "")
	return ix
}

func (ix *index) add(decls []syntax.Decl, prefix string) {
	for _, d := range decls {
		switch d := d.(type) {
		case *syntax.ShaderDecl:
			ix.shaders[d.Name] = d
			ix.shaders[prefix+d.Name] = d
		case *syntax.EffectDecl:
			ix.effects[d.Name] = d
			ix.effects[prefix+d.Name] = d
		case *syntax.ParamsDecl:
			ix.params[d.Name] = d
			ix.params[prefix+d.Name] = d
		case *syntax.NamespaceDecl:
			ix.add(d.Decls, prefix+d.Name+".")
		}
	}
}

type evaluator struct {
	ix     *index
	params Params
	result *Result
	diags  diag.List
	// scope maps visible parameter names, short and qualified, to values.
	scope   map[string]Value
	sources map[string]string
	stack   []string
}

// Evaluate runs the named effect with the given parameter values. Parameters
// not given take the defaults declared in their parameter block.
func Evaluate(file *syntax.File, effectName string, params Params) (*Result, diag.List) {
	ev := &evaluator{
		ix:      newIndex(file),
		params:  params,
		result:  &Result{Effect: effectName, Compositions: map[string][]string{}},
		scope:   make(map[string]Value),
		sources: make(map[string]string),
	}
	eff := ev.ix.effects[effectName]
	if eff == nil {
		ev.diags.Addf(file.Span, diag.CodeUnknownEffect, "unknown effect %s", effectName)
		return nil, ev.diags
	}
	ev.effect(eff)
	ev.diags.Sort()
	if ev.diags.HasErrors() {
		return nil, ev.diags
	}
	return ev.result, ev.diags
}

func (ev *evaluator) effect(eff *syntax.EffectDecl) {
	for _, name := range ev.stack {
		if name == eff.Name {
			ev.diags.Addf(eff.Span, diag.CodeMixinCycle, "effect %s mixes itself in: %s", eff.Name, strings.Join(append(ev.stack, eff.Name), " -> "))
			return
		}
	}
	ev.stack = append(ev.stack, eff.Name)
	defer func() { ev.stack = ev.stack[:len(ev.stack)-1] }()
	if eff.Body != nil {
		ev.stmt(eff.Body)
	}
}

func (ev *evaluator) stmt(s syntax.Stmt) {
	switch s := s.(type) {
	case *syntax.Block:
		for _, st := range s.Stmts {
			ev.stmt(st)
		}
	case *syntax.UsingParams:
		ev.using(s)
	case *syntax.If:
		v, ok := ev.eval(s.Cond)
		switch {
		case !ok:
		case v.Truth():
			ev.stmt(s.Then)
		case s.Else != nil:
			ev.stmt(s.Else)
		}
	case *syntax.ShaderSourceDeclaration:
		if name, ok := ev.shaderName(s.Value); ok {
			ev.sources[s.Name] = name
		}
	case *syntax.Mixin:
		ev.mixin(s)
	default:
		ev.diags.Add(s.Pos(), diag.CodeBadEffectExpr, "statement not allowed in an effect")
	}
}

func (ev *evaluator) using(s *syntax.UsingParams) {
	block := ev.ix.params[s.Name]
	if block == nil {
		ev.diags.Addf(s.Span, diag.CodeUnknownParams, "unknown parameter block %s", s.Name)
		return
	}
	for _, p := range block.Params {
		key := block.Name + "." + p.Name
		v, ok := ev.params[key]
		if !ok {
			v, ok = ev.defaultValue(p)
			if !ok {
				continue
			}
		}
		ev.scope[key] = v
		ev.scope[p.Name] = v
		if s.Name != block.Name {
			ev.scope[s.Name+"."+p.Name] = v
		}
	}
}

// defaultValue evaluates a parameter default. A parameter without a default
// takes the zero value of its type.
func (ev *evaluator) defaultValue(p *syntax.VariableDecl) (Value, bool) {
	if p.Value != nil {
		return ev.eval(p.Value)
	}
	switch p.Type.Name {
	case "bool":
		return Bool(false), true
	case "int", "uint":
		return Int(0), true
	case "float", "double", "half":
		return Float(0), true
	}
	return String(""), true
}

func (ev *evaluator) mixin(m *syntax.Mixin) {
	r := ev.result
	switch m.Kind {
	case syntax.MixinClone:
		r.Cloned = true
		if m.Value == nil {
			return
		}
		fallthrough
	case syntax.MixinDefault:
		name, ok := ev.shaderName(m.Value)
		if !ok {
			return
		}
		if eff := ev.ix.effects[name]; eff != nil {
			ev.effect(eff)
			return
		}
		if ev.ix.shaders[name] == nil {
			ev.diags.Addf(m.Value.Pos(), diag.CodeUnknownShader, "unknown shader %s", name)
			return
		}
		r.addMixin(name)
	case syntax.MixinComposeSet, syntax.MixinComposeAdd:
		name, ok := ev.shaderName(m.Value)
		if !ok {
			return
		}
		if ev.ix.shaders[name] == nil {
			ev.diags.Addf(m.Value.Pos(), diag.CodeUnknownShader, "unknown shader %s", name)
			return
		}
		if m.Kind == syntax.MixinComposeSet {
			r.Compositions[m.Name] = []string{name}
		} else {
			r.Compositions[m.Name] = append(r.Compositions[m.Name], name)
		}
	case syntax.MixinChild:
		name, ok := ev.shaderName(m.Value)
		if !ok {
			return
		}
		if ev.ix.effects[name] == nil {
			ev.diags.Addf(m.Value.Pos(), diag.CodeUnknownEffect, "unknown child effect %s", name)
			return
		}
		r.Children = append(r.Children, name)
	case syntax.MixinMacro:
		if m.Name == "" {
			ev.diags.Add(m.Span, diag.CodeBadEffectExpr, "macro mixin requires 'NAME = value'")
			return
		}
		v, ok := ev.eval(m.Value)
		if !ok {
			return
		}
		r.setMacro(m.Name, v.String())
	case syntax.MixinRemove:
		name, ok := ev.shaderName(m.Value)
		if !ok {
			return
		}
		if !r.removeMixin(name) {
			ev.diags.Warnf(m.Span, diag.CodeUnknownShader, "shader %s is not mixed in", name)
		}
	}
}

// shaderName resolves a mixin operand: a shader or effect name, a dotted
// name, a ShaderSource alias, or a string parameter naming a shader.
func (ev *evaluator) shaderName(e syntax.Expr) (string, bool) {
	name, ok := dotted(e)
	if !ok {
		ev.diags.Add(e.Pos(), diag.CodeBadEffectExpr, "expected a shader name")
		return "", false
	}
	if alias, ok := ev.sources[name]; ok {
		return alias, true
	}
	if v, ok := ev.scope[name]; ok && v.Kind == KindString {
		return v.Str, true
	}
	return name, true
}

func dotted(e syntax.Expr) (string, bool) {
	switch e := e.(type) {
	case *syntax.VariableName:
		return e.Name, true
	case *syntax.ChainAccessor:
		prefix, ok := dotted(e.X)
		return prefix + "." + e.Field, ok
	case *syntax.Paren:
		return dotted(e.X)
	}
	return "", false
}
