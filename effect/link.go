package effect

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

type linker struct {
	ix    *index
	out   *syntax.ShaderDecl
	diags diag.List

	methods map[string]*syntax.MethodDecl
	origin  map[*syntax.MethodDecl]string
	vars    map[string]*syntax.VariableDecl
	types   map[string]bool
	seen    map[syntax.Decl]bool
	slots   map[string]*syntax.CompositionDecl
	names   map[string]bool
}

// Link merges the shaders mixed by r, base shaders first, into one shader
// named after the effect. File-level declarations outside shaders come
// first.
//
// A method marked override replaces the method of the same name mixed
// before it, which stays reachable from the override as base.Name(). A
// composition slot filled with a single shader links that shader with its
// members prefixed by the slot name, so Slot.Method() calls resolve.
func Link(file *syntax.File, r *Result) (*syntax.ShaderDecl, diag.List) {
	l := &linker{
		ix:      newIndex(file),
		out:     &syntax.ShaderDecl{Name: r.Effect, Span: file.Span},
		methods: make(map[string]*syntax.MethodDecl),
		origin:  make(map[*syntax.MethodDecl]string),
		vars:    make(map[string]*syntax.VariableDecl),
		types:   make(map[string]bool),
		seen:    make(map[syntax.Decl]bool),
		slots:   make(map[string]*syntax.CompositionDecl),
		names:   make(map[string]bool),
	}

	var top []syntax.Decl
	for _, d := range file.Decls {
		switch d.(type) {
		case *syntax.StructDecl, *syntax.VariableDecl, *syntax.MethodDecl, *syntax.CBufferDecl:
			top = append(top, d)
		}
	}
	l.merge("", top, "", nil)

	order := l.linearize(r.Mixins)
	for _, s := range order {
		l.merge(s.Name, s.Members, "", nil)
	}
	l.compose(r)

	l.diags.Sort()
	if l.diags.HasErrors() {
		return nil, l.diags
	}
	return l.out, l.diags
}

// linearize orders shaders so that every shader follows its bases,
// depth-first in declaration order, each shader once.
func (l *linker) linearize(roots []string) []*syntax.ShaderDecl {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var order []*syntax.ShaderDecl
	var visit func(name string, span diag.Span, path []string)
	visit = func(name string, span diag.Span, path []string) {
		s := l.ix.shaders[name]
		if s == nil {
			l.diags.Addf(span, diag.CodeUnknownShader, "unknown shader %s", name)
			return
		}
		switch state[s.Name] {
		case visiting:
			l.diags.Addf(s.Span, diag.CodeMixinCycle, "shader %s inherits from itself: %s", s.Name, strings.Join(append(path, s.Name), " -> "))
			return
		case done:
			return
		}
		state[s.Name] = visiting
		for _, b := range s.Bases {
			visit(b, s.Span, append(path, s.Name))
		}
		state[s.Name] = done
		order = append(order, s)
	}
	for _, name := range roots {
		visit(name, l.out.Span, nil)
	}
	return order
}

// merge adds the members of one shader. prefix and rename apply to
// composed shaders.
func (l *linker) merge(shader string, members []syntax.Decl, prefix string, rename map[string]string) {
	// Overrides first move the method they replace out of the way, so that
	// base calls in this shader resolve to the renamed method.
	for _, d := range members {
		m, ok := d.(*syntax.MethodDecl)
		if !ok || !m.Modifiers.Has(syntax.ModOverride) {
			continue
		}
		name := prefix + m.Name
		prev := l.methods[name]
		if prev == nil {
			l.diags.Addf(m.Span, diag.CodeNothingToOverride, "method %s.%s overrides nothing", shader, m.Name)
			continue
		}
		if prev.Body == nil {
			continue
		}
		prev.Name = l.fresh(name + "_" + strings.ReplaceAll(l.origin[prev], ".", "_"))
	}
	base := make(map[string]string, len(l.methods))
	for name, m := range l.methods {
		base[name] = m.Name
	}

	for _, d := range members {
		if l.seen[d] {
			continue
		}
		l.seen[d] = true
		switch d := d.(type) {
		case *syntax.VariableDecl:
			l.variable(shader, d, prefix)
		case *syntax.MethodDecl:
			l.method(shader, d, prefix, rename, base)
		case *syntax.StructDecl:
			l.typeDecl(shader, d.Name, d)
		case *syntax.CBufferDecl:
			l.typeDecl(shader, d.Name, d)
		case *syntax.CompositionDecl:
			if prefix == "" {
				l.slots[d.Name] = d
				l.out.Members = append(l.out.Members, syntax.CloneDecl(d))
			}
		}
	}
}

func (l *linker) variable(shader string, d *syntax.VariableDecl, prefix string) {
	c := syntax.CloneDecl(d).(*syntax.VariableDecl)
	if !d.Modifiers.Has(syntax.ModStream) {
		c.Name = prefix + d.Name
	}
	if prev, ok := l.vars[c.Name]; ok {
		if d.Modifiers.Has(syntax.ModStream) && prev.Modifiers.Has(syntax.ModStream) && syntax.Print(prev.Type) == syntax.Print(d.Type) {
			return
		}
		l.diags.Addf(d.Span, diag.CodeDuplicateMethod, "member %s of %s is already declared", d.Name, shader)
		return
	}
	l.vars[c.Name] = c
	l.names[c.Name] = true
	l.out.Members = append(l.out.Members, c)
}

func (l *linker) method(shader string, d *syntax.MethodDecl, prefix string, rename, base map[string]string) {
	c := syntax.CloneDecl(d).(*syntax.MethodDecl)
	c.Name = prefix + d.Name
	if c.Body != nil {
		l.rewrite(c.Body, prefix, rename, base)
	}

	if prev := l.methods[c.Name]; prev != nil {
		switch {
		case prev.Body == nil:
			l.removeMember(prev)
		case !d.Modifiers.Has(syntax.ModOverride):
			l.diags.Addf(d.Span, diag.CodeDuplicateMethod, "method %s of %s is already defined by %s; mark it override", d.Name, shader, l.origin[prev])
			return
		}
	}
	c.Modifiers &^= syntax.ModOverride
	l.methods[c.Name] = c
	l.origin[c] = shader
	l.names[c.Name] = true
	l.out.Members = append(l.out.Members, c)
}

func (l *linker) typeDecl(shader, name string, d syntax.Decl) {
	if l.types[name] {
		l.diags.Addf(d.Pos(), diag.CodeDuplicateMethod, "type %s of %s is already declared", name, shader)
		return
	}
	l.types[name] = true
	l.out.Members = append(l.out.Members, syntax.CloneDecl(d))
}

func (l *linker) removeMember(d syntax.Decl) {
	for i, m := range l.out.Members {
		if m == d {
			l.out.Members = append(l.out.Members[:i], l.out.Members[i+1:]...)
			return
		}
	}
}

// fresh returns name, or name with a numeric suffix if it is taken.
func (l *linker) fresh(name string) string {
	candidate := name
	for i := 2; l.names[candidate] || l.methods[candidate] != nil; i++ {
		candidate = name + strconv.Itoa(i)
	}
	l.names[candidate] = true
	return candidate
}

// rewrite resolves base calls and applies composition renaming in a cloned
// method body.
func (l *linker) rewrite(body *syntax.Block, prefix string, rename, base map[string]string) {
	syntax.Inspect(body, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.MethodCall:
			if v, ok := n.Receiver.(*syntax.VariableName); ok && v.Name == "base" {
				target, ok := base[prefix+n.Name]
				if !ok {
					l.diags.Addf(n.Span, diag.CodeNothingToOverride, "no base method %s", n.Name)
					return true
				}
				n.Receiver = nil
				n.Name = target
			} else if n.Receiver == nil {
				if to, ok := rename[n.Name]; ok {
					n.Name = to
				}
			}
		case *syntax.VariableName:
			if to, ok := rename[n.Name]; ok {
				n.Name = to
			}
		}
		return true
	})
}

// compose links the shaders assigned to composition slots.
func (l *linker) compose(r *Result) {
	slots := make([]string, 0, len(r.Compositions))
	for name := range r.Compositions {
		slots = append(slots, name)
	}
	slices.Sort(slots)

	linked := make(map[string]bool)
	for _, slot := range slots {
		decl := l.slots[slot]
		shaders := r.Compositions[slot]
		switch {
		case decl == nil:
			l.diags.Addf(l.out.Span, diag.CodeBadEffectExpr, "no composition slot %s", slot)
			continue
		case decl.Array || len(shaders) != 1:
			l.diags.Addf(decl.Span, diag.CodeBadEffectExpr, "composition %s: composition arrays are not supported", slot)
			continue
		}
		order := l.linearize(shaders)
		prefix := slot + "_"
		rename := make(map[string]string)
		for _, s := range order {
			for _, m := range s.Members {
				switch m := m.(type) {
				case *syntax.MethodDecl:
					rename[m.Name] = prefix + m.Name
				case *syntax.VariableDecl:
					if !m.Modifiers.Has(syntax.ModStream) {
						rename[m.Name] = prefix + m.Name
					}
				}
			}
		}
		// Members shared with the main shader are instantiated again.
		for _, s := range order {
			for _, m := range s.Members {
				switch m.(type) {
				case *syntax.StructDecl, *syntax.CBufferDecl:
				default:
					delete(l.seen, m)
				}
			}
			l.merge(s.Name, s.Members, prefix, rename)
		}
		linked[slot] = true
	}

	for _, m := range l.out.Members {
		md, ok := m.(*syntax.MethodDecl)
		if !ok || md.Body == nil {
			continue
		}
		syntax.Inspect(md.Body, func(n syntax.Node) bool {
			call, ok := n.(*syntax.MethodCall)
			if !ok {
				return true
			}
			if v, ok := call.Receiver.(*syntax.VariableName); ok && linked[v.Name] {
				call.Receiver = nil
				call.Name = v.Name + "_" + call.Name
			}
			return true
		})
	}
}
