package preprocess

import (
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/syntax"
)

// evalCondition evaluates the expression of #if or #elif.
func (p *Preprocessor) evalCondition(text string, span diag.Span, d *diag.List) bool {
	if strings.TrimSpace(text) == "" {
		d.Add(span, diag.CodeBadCondition, "missing condition")
		return false
	}
	expanded := p.expandCondition(text)
	e, diags := syntax.ParseExpr(expanded)
	if diags.HasErrors() {
		d.Addf(span, diag.CodeBadCondition, "invalid condition %q", strings.TrimSpace(text))
		return false
	}
	v, ok := evalExpr(e)
	if !ok {
		d.Addf(span, diag.CodeBadCondition, "condition %q is not an integer expression", strings.TrimSpace(text))
		return false
	}
	return v != 0
}

// expandCondition resolves defined(NAME) and substitutes macros. Remaining
// identifiers are left for the evaluator, which reads them as 0.
func (p *Preprocessor) expandCondition(text string) string {
	var sb strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if !isIdentStart(c) {
			if c >= '0' && c <= '9' {
				j := i
				for j < len(text) && isIdentPart(text[j]) {
					j++
				}
				sb.WriteString(text[i:j])
				i = j
				continue
			}
			sb.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(text) && isIdentPart(text[j]) {
			j++
		}
		word := text[i:j]
		i = j
		if word != "defined" {
			sb.WriteString(p.expand(word, nil))
			continue
		}
		rest := strings.TrimLeft(text[i:], " \t")
		paren := strings.HasPrefix(rest, "(")
		if paren {
			rest = strings.TrimLeft(rest[1:], " \t")
		}
		name, _ := splitDirective(rest)
		consumed := len(text[i:]) - len(rest) + len(name)
		if paren {
			after := strings.TrimLeft(rest[len(name):], " \t")
			if !strings.HasPrefix(after, ")") {
				// Leave it to the parser to reject.
				sb.WriteString(word)
				continue
			}
			consumed += len(rest[len(name):]) - len(after) + 1
		}
		if p.Defined(name) {
			sb.WriteString("1")
		} else {
			sb.WriteString("0")
		}
		i += consumed
	}
	return sb.String()
}

func evalExpr(e syntax.Expr) (int64, bool) {
	switch e := e.(type) {
	case *syntax.Number:
		text := strings.TrimRight(strings.ToLower(e.Text), "ul")
		v, err := strconv.ParseInt(text, 0, 64)
		return v, err == nil
	case *syntax.Bool:
		if e.Value {
			return 1, true
		}
		return 0, true
	case *syntax.VariableName:
		return 0, true
	case *syntax.Paren:
		return evalExpr(e.X)
	case *syntax.Unary:
		if e.Postfix {
			return 0, false
		}
		x, ok := evalExpr(e.X)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case "!":
			return boolInt(x == 0), true
		case "-":
			return -x, true
		case "+":
			return x, true
		case "~":
			return ^x, true
		}
		return 0, false
	case *syntax.Ternary:
		c, ok := evalExpr(e.Cond)
		if !ok {
			return 0, false
		}
		if c != 0 {
			return evalExpr(e.Then)
		}
		return evalExpr(e.Else)
	case *syntax.Operation:
		l, ok := evalExpr(e.Left)
		if !ok {
			return 0, false
		}
		// Short-circuit so that the untaken side may be anything.
		switch e.Op {
		case "&&":
			if l == 0 {
				return 0, true
			}
		case "||":
			if l != 0 {
				return 1, true
			}
		}
		r, ok := evalExpr(e.Right)
		if !ok {
			return 0, false
		}
		return binary(e.Op, l, r)
	}
	return 0, false
}

func binary(op string, l, r int64) (int64, bool) {
	switch op {
	case "&&":
		return boolInt(r != 0), true
	case "||":
		return boolInt(r != 0), true
	case "==":
		return boolInt(l == r), true
	case "!=":
		return boolInt(l != r), true
	case "<":
		return boolInt(l < r), true
	case "<=":
		return boolInt(l <= r), true
	case ">":
		return boolInt(l > r), true
	case ">=":
		return boolInt(l >= r), true
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/", "%":
		if r == 0 {
			return 0, false
		}
		if op == "/" {
			return l / r, true
		}
		return l % r, true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	case "<<":
		return l << uint64(r&63), true
	case ">>":
		return l >> uint64(r&63), true
	}
	return 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
