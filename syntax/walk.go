package syntax

// Inspect traverses the tree rooted at node in depth-first order, calling f
// for each node before its children. Children are skipped when f returns
// false.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *File:
		for _, d := range n.Decls {
			Inspect(d, f)
		}
	case *ShaderDecl:
		for _, d := range n.Members {
			Inspect(d, f)
		}
	case *NamespaceDecl:
		for _, d := range n.Decls {
			Inspect(d, f)
		}
	case *StructDecl:
		for _, fd := range n.Fields {
			Inspect(fd, f)
		}
	case *CBufferDecl:
		for _, m := range n.Members {
			Inspect(m, f)
		}
	case *ParamsDecl:
		for _, p := range n.Params {
			Inspect(p, f)
		}
	case *VariableDecl:
		Inspect(n.ArraySize, f)
		Inspect(n.Value, f)
	case *MethodDecl:
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *EffectDecl:
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *Assign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *AssignChain:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *ExpressionStatement:
		Inspect(n.X, f)
	case *Return:
		Inspect(n.Value, f)
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *For:
		Inspect(n.Init, f)
		Inspect(n.Cond, f)
		Inspect(n.Post, f)
		Inspect(n.Body, f)
	case *While:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *Mixin:
		Inspect(n.Value, f)
	case *ShaderSourceDeclaration:
		Inspect(n.Value, f)
	case *Operation:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *Unary:
		Inspect(n.X, f)
	case *Ternary:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *MethodCall:
		Inspect(n.Receiver, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *ChainAccessor:
		Inspect(n.X, f)
	case *ArrayAccessor:
		Inspect(n.X, f)
		Inspect(n.Index, f)
	case *Paren:
		Inspect(n.X, f)
	}
}
