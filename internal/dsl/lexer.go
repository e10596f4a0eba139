// Package dsl implements the declarative rule language: a small
// forbid(...)/permit(...) on { condition } grammar parsed with
// github.com/alecthomas/participle/v2 into a typed condition tree, then
// resolved against the closed fact-kind registry so unknown types and
// fields are rejected before a rule ever runs (spec.md §4.3).
package dsl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxSourceBytes bounds how large a single rule's source text may be before
// the parser refuses it outright, independent of any participle-internal
// limit. Input over this size is rejected with SizeLimitExceeded before any
// parsing; nesting depth is not limited separately.
const MaxSourceBytes = 64 * 1024

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*[\s\S]*?\*/`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Variable", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `==|!=|<=|>=|&&|\|\||[<>!]`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*(?:::[a-zA-Z_][a-zA-Z0-9_]*)*`},
	{Name: "Punct", Pattern: `[(){}\[\],:]`},
})
