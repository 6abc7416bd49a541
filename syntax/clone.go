package syntax

// CloneDecl returns a deep copy of d. Spans are shared values and are copied
// as is.
func CloneDecl(d Decl) Decl {
	switch d := d.(type) {
	case *ShaderDecl:
		c := *d
		c.Bases = append([]string(nil), d.Bases...)
		c.Members = cloneDecls(d.Members)
		return &c
	case *NamespaceDecl:
		c := *d
		c.Decls = cloneDecls(d.Decls)
		return &c
	case *StructDecl:
		c := *d
		c.Fields = cloneVars(d.Fields)
		return &c
	case *CBufferDecl:
		c := *d
		c.Members = cloneVars(d.Members)
		return &c
	case *ParamsDecl:
		c := *d
		c.Params = cloneVars(d.Params)
		return &c
	case *VariableDecl:
		return cloneVar(d)
	case *MethodDecl:
		c := *d
		c.Result = cloneType(d.Result)
		c.Params = make([]*Param, len(d.Params))
		for i, p := range d.Params {
			pc := *p
			pc.Type = cloneType(p.Type)
			c.Params[i] = &pc
		}
		if d.Body != nil {
			c.Body = cloneBlock(d.Body)
		}
		return &c
	case *EffectDecl:
		c := *d
		if d.Body != nil {
			c.Body = cloneBlock(d.Body)
		}
		return &c
	case *CompositionDecl:
		c := *d
		return &c
	}
	return d
}

func cloneDecls(ds []Decl) []Decl {
	out := make([]Decl, len(ds))
	for i, d := range ds {
		out[i] = CloneDecl(d)
	}
	return out
}

func cloneVars(vs []*VariableDecl) []*VariableDecl {
	out := make([]*VariableDecl, len(vs))
	for i, v := range vs {
		out[i] = cloneVar(v)
	}
	return out
}

func cloneVar(v *VariableDecl) *VariableDecl {
	c := *v
	c.Type = cloneType(v.Type)
	c.ArraySize = CloneExpr(v.ArraySize)
	c.Value = CloneExpr(v.Value)
	return &c
}

func cloneType(t *TypeName) *TypeName {
	if t == nil {
		return nil
	}
	c := *t
	c.Args = append([]string(nil), t.Args...)
	c.ArraySize = CloneExpr(t.ArraySize)
	return &c
}

func cloneBlock(b *Block) *Block {
	c := &Block{Span: b.Span, Stmts: make([]Stmt, len(b.Stmts))}
	for i, s := range b.Stmts {
		c.Stmts[i] = CloneStmt(s)
	}
	return c
}

// CloneStmt returns a deep copy of s.
func CloneStmt(s Stmt) Stmt {
	switch s := s.(type) {
	case nil:
		return nil
	case *Block:
		return cloneBlock(s)
	case *VariableDecl:
		return cloneVar(s)
	case *Assign:
		c := *s
		c.Target = CloneExpr(s.Target).(*VariableName)
		c.Value = CloneExpr(s.Value)
		return &c
	case *AssignChain:
		c := *s
		c.Target = CloneExpr(s.Target)
		c.Value = CloneExpr(s.Value)
		return &c
	case *ExpressionStatement:
		c := *s
		c.X = CloneExpr(s.X)
		return &c
	case *Return:
		c := *s
		c.Value = CloneExpr(s.Value)
		return &c
	case *If:
		c := *s
		c.Cond = CloneExpr(s.Cond)
		c.Then = CloneStmt(s.Then)
		c.Else = CloneStmt(s.Else)
		return &c
	case *For:
		c := *s
		c.Init = CloneStmt(s.Init)
		c.Cond = CloneExpr(s.Cond)
		c.Post = CloneStmt(s.Post)
		c.Body = CloneStmt(s.Body)
		return &c
	case *While:
		c := *s
		c.Cond = CloneExpr(s.Cond)
		c.Body = CloneStmt(s.Body)
		return &c
	case *Flow:
		c := *s
		return &c
	case *Mixin:
		c := *s
		c.Value = CloneExpr(s.Value)
		return &c
	case *UsingParams:
		c := *s
		return &c
	case *ShaderSourceDeclaration:
		c := *s
		c.Value = CloneExpr(s.Value)
		return &c
	}
	return s
}

// CloneExpr returns a deep copy of e.
func CloneExpr(e Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case *Operation:
		c := *e
		c.Left = CloneExpr(e.Left)
		c.Right = CloneExpr(e.Right)
		return &c
	case *Unary:
		c := *e
		c.X = CloneExpr(e.X)
		return &c
	case *Ternary:
		c := *e
		c.Cond = CloneExpr(e.Cond)
		c.Then = CloneExpr(e.Then)
		c.Else = CloneExpr(e.Else)
		return &c
	case *MethodCall:
		c := *e
		c.Receiver = CloneExpr(e.Receiver)
		c.Args = make([]Expr, len(e.Args))
		for i, a := range e.Args {
			c.Args[i] = CloneExpr(a)
		}
		return &c
	case *Number:
		c := *e
		return &c
	case *Bool:
		c := *e
		return &c
	case *VariableName:
		c := *e
		return &c
	case *ChainAccessor:
		c := *e
		c.X = CloneExpr(e.X)
		return &c
	case *ArrayAccessor:
		c := *e
		c.X = CloneExpr(e.X)
		c.Index = CloneExpr(e.Index)
		return &c
	case *Paren:
		c := *e
		c.X = CloneExpr(e.X)
		return &c
	}
	return e
}
