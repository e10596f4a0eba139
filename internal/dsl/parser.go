package dsl

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"github.com/1homsi/govern/internal/registry"
)

var participleParser = participle.MustBuild[ruleNode](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses and resolves a single rule's source text. reg is consulted
// to resolve Custom fact-type discriminants and their field schemas; it may
// be nil if the rule set uses no custom fact types.
func Parse(src string, reg *registry.Registry) (*Rule, error) {
	if len(src) > MaxSourceBytes {
		return nil, &Error{Kind: SizeLimitExceeded,
			Message: fmt.Sprintf("rule source is %d bytes, exceeding the %d byte limit", len(src), MaxSourceBytes)}
	}

	node, err := participleParser.ParseString("", src)
	if err != nil {
		return nil, &Error{Kind: SyntaxError, Message: err.Error(), Wrapped: err}
	}

	rule, err := lowerRule(node)
	if err != nil {
		return nil, &Error{Kind: SyntaxError, Message: err.Error(), Wrapped: err}
	}

	if err := resolve(rule, reg); err != nil {
		return nil, err
	}
	return rule, nil
}

// ParseAll parses a source document containing zero or more
// forbid(...)/permit(...) rules back to back, in source order.
func ParseAll(src string, reg *registry.Registry) ([]*Rule, error) {
	if len(src) > MaxSourceBytes {
		return nil, &Error{Kind: SizeLimitExceeded,
			Message: fmt.Sprintf("rule document is %d bytes, exceeding the %d byte limit", len(src), MaxSourceBytes)}
	}

	chunks, err := splitRules(src)
	if err != nil {
		return nil, &Error{Kind: SyntaxError, Message: err.Error(), Wrapped: err}
	}

	var rules []*Rule
	for _, chunk := range chunks {
		r, err := Parse(chunk, reg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// splitRules breaks a document into individual "forbid(...)... }" /
// "permit(...)... }" chunks by tracking brace depth at the character level,
// skipping over string literals and comments so braces inside them never
// miscount. Each rule's condition block is the only brace nesting the
// grammar allows, so depth returning to zero always marks a rule boundary.
func splitRules(src string) ([]string, error) {
	var chunks []string
	start := -1
	depth := 0
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
		case r == '"':
			if start == -1 {
				start = i
			}
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
		case r == '{':
			if start == -1 {
				start = i
			}
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced '}' at offset %d", i)
			}
			if depth == 0 && start != -1 {
				chunks = append(chunks, string(runes[start:i+1]))
				start = -1
			}
		case !isSpace(r):
			if start == -1 {
				start = i
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '{' in rule document")
	}
	return chunks, nil
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
