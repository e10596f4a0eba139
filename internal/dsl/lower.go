package dsl

import (
	"fmt"
	"strconv"

	"github.com/1homsi/govern/internal/ir"
)

// lowerRule converts a raw participle parse tree into a Rule. Fact-type and
// field-name resolution happens afterward in resolve.go; lowering only
// establishes shape and rejects outright-malformed literals.
func lowerRule(n *ruleNode) (*Rule, error) {
	r := &Rule{}
	switch n.Keyword {
	case "forbid":
		r.Kind = Forbid
	case "permit":
		r.Kind = Permit
	default:
		return nil, fmt.Errorf("dsl: unknown rule keyword %q", n.Keyword)
	}

	haveID := false
	for _, p := range n.Params {
		switch p.Name {
		case "rule":
			if p.Str == nil {
				return nil, fmt.Errorf("dsl: rule: expects a string literal")
			}
			r.ID = unquote(*p.Str)
			haveID = true
		case "severity":
			var raw string
			switch {
			case p.Bare != nil:
				raw = *p.Bare
			case p.Str != nil:
				raw = unquote(*p.Str)
			default:
				return nil, fmt.Errorf("dsl: severity: expects an identifier or string")
			}
			sev, err := ir.ParseSeverity(raw)
			if err != nil {
				return nil, fmt.Errorf("dsl: %w", err)
			}
			r.Severity = sev
		case "description":
			if p.Str == nil {
				return nil, fmt.Errorf("dsl: description: expects a string literal")
			}
			r.Description = unquote(*p.Str)
		case "tags":
			if p.List == nil {
				return nil, fmt.Errorf("dsl: tags: expects a list of strings")
			}
			for _, t := range p.List {
				r.Tags = append(r.Tags, unquote(t))
			}
		default:
			return nil, fmt.Errorf("dsl: unknown rule parameter %q", p.Name)
		}
	}
	if !haveID {
		return nil, fmt.Errorf("dsl: rule is missing a required rule: \"id\" parameter")
	}

	cond, err := lowerOr(n.Cond)
	if err != nil {
		return nil, err
	}
	r.Condition = cond
	return r, nil
}

func lowerOr(n *orNode) (Condition, error) {
	operands := make([]Condition, 0, 1+len(n.Rest))
	first, err := lowerAnd(n.Left)
	if err != nil {
		return nil, err
	}
	operands = append(operands, first)
	for _, a := range n.Rest {
		c, err := lowerAnd(a)
		if err != nil {
			return nil, err
		}
		operands = append(operands, c)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return &Or{Operands: operands}, nil
}

func lowerAnd(n *andNode) (Condition, error) {
	operands := make([]Condition, 0, 1+len(n.Rest))
	first, err := lowerNot(n.Left)
	if err != nil {
		return nil, err
	}
	operands = append(operands, first)
	for _, nn := range n.Rest {
		c, err := lowerNot(nn)
		if err != nil {
			return nil, err
		}
		operands = append(operands, c)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return &And{Operands: operands}, nil
}

func lowerNot(n *notNode) (Condition, error) {
	c, err := lowerPrimary(n.Prim)
	if err != nil {
		return nil, err
	}
	if n.Negate {
		return &Not{Operand: c}, nil
	}
	return c, nil
}

func lowerPrimary(n *primNode) (Condition, error) {
	switch {
	case n.Exists != nil:
		return lowerFactPattern(n.Exists)
	case n.Sub != nil:
		return lowerOr(n.Sub)
	default:
		return nil, fmt.Errorf("dsl: empty condition")
	}
}

func lowerFactPattern(n *factPatternNode) (Condition, error) {
	fe := &FactExists{}
	kind := ir.FactKind(n.Type)
	isCore := false
	for _, k := range ir.CoreKinds {
		if k == kind {
			isCore = true
			break
		}
	}
	if isCore {
		fe.Kind = kind
	} else {
		fe.Kind = ir.KindCustom
		fe.Discriminant = n.Type
	}

	for _, f := range n.Fields {
		expr, err := lowerExpr(f.Expr)
		if err != nil {
			return nil, fmt.Errorf("dsl: field %q: %w", f.Name, err)
		}
		fe.Bindings = append(fe.Bindings, FieldBinding{Field: f.Name, Expr: expr})
	}
	return fe, nil
}

func lowerExpr(n *exprNode) (BindingExpr, error) {
	var inner BindingExpr
	switch {
	case n.Var != nil:
		inner = VariableRef{Name: (*n.Var)[1:]} // drop leading '$'
	case n.Str != nil:
		inner = Literal{Value: unquote(*n.Str)}
	case n.Num != nil:
		f, err := strconv.ParseFloat(*n.Num, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q", *n.Num)
		}
		inner = Literal{Value: f}
	case n.Int != nil:
		f, err := strconv.ParseFloat(*n.Int, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", *n.Int)
		}
		inner = Literal{Value: f}
	case n.Bool != nil:
		inner = Literal{Value: *n.Bool == "true"}
	default:
		return nil, fmt.Errorf("empty field value")
	}

	if n.Op == "" {
		return inner, nil
	}
	if _, isVar := inner.(VariableRef); isVar && n.Op != "==" && n.Op != "!=" {
		return nil, fmt.Errorf("operator %q is not defined for variable references", n.Op)
	}
	return Comparison{Op: n.Op, Expr: inner}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	out := make([]rune, 0, len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			switch r {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
