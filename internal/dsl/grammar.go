package dsl

// The grammar node types below are the raw participle parse tree. They
// mirror the precedence chain from spec.md §4.3 exactly:
//
//	or      -> and ("||" and)*
//	and     -> not ("&&" not)*
//	not     -> "!" primary | primary
//	primary -> "exists" "(" factPattern ")" | "(" or ")"
//
// Nothing here is exported; lower.go walks these nodes into the public
// Rule/Condition/BindingExpr types, and resolve.go validates discriminants
// and field paths against the closed registry.

type ruleNode struct {
	Keyword string       `parser:"@(\"forbid\"|\"permit\")"`
	Params  []*paramNode `parser:"'(' @@ (',' @@)* ')' \"on\""`
	Cond    *orNode      `parser:"'{' @@ '}'"`
}

type paramNode struct {
	Name string   `parser:"@Ident ':'"`
	Str  *string  `parser:"( @String"`
	Bare *string  `parser:"| @Ident"`
	List []string `parser:"| '[' (@String (',' @String)*)? ']' )"`
}

type orNode struct {
	Left *andNode   `parser:"@@"`
	Rest []*andNode `parser:"( \"||\" @@ )*"`
}

type andNode struct {
	Left *notNode   `parser:"@@"`
	Rest []*notNode `parser:"( \"&&\" @@ )*"`
}

type notNode struct {
	Negate bool      `parser:"@'!'?"`
	Prim   *primNode `parser:"@@"`
}

type primNode struct {
	Exists *factPatternNode `parser:"( \"exists\" '(' @@ ')'"`
	Sub    *orNode          `parser:"| '(' @@ ')' )"`
}

type factPatternNode struct {
	Type   string       `parser:"\"Fact\" '{' \"type\" ':' @(Ident | String)"`
	Fields []*fieldNode `parser:"(',' @@)* '}'"`
}

type fieldNode struct {
	Name string    `parser:"@Ident ':'"`
	Expr *exprNode `parser:"@@"`
}

// exprNode is a field's right-hand side: an optional comparison operator
// (absent means implicit equality) followed by a variable reference or a
// literal.
type exprNode struct {
	Op   string  `parser:"@('=='|'!='|'<='|'>='|'<'|'>')?"`
	Var  *string `parser:"( @Variable"`
	Str  *string `parser:"| @String"`
	Num  *string `parser:"| @Float"`
	Int  *string `parser:"| @Int"`
	Bool *string `parser:"| @('true'|'false') )"`
}
