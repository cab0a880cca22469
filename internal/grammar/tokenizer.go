package grammar

import "unicode/utf8"

// Token is a contiguous span of the input with its scope stack.
// Scopes are ordered outermost first, most specific last. A token with no
// scopes is plain text. Tokens returned by Tokenize partition the input:
// Start of each token equals End of the previous one, the first starts at
// 0 and the last ends at len(input).
type Token struct {
	Start  int
	End    int
	Value  string
	Scopes []string
}

// Tokenize scans text into tokens. It is total: it never fails, always
// terminates, and always covers the whole input. When no rule matches at a
// position, one character is emitted carrying only the enclosing contexts'
// meta scopes, and scanning continues. Contexts left open at end of input
// are closed implicitly.
func (g *Grammar) Tokenize(text string) []Token {
	var tokens []Token

	// stack holds context arena indices; metaScopes mirrors it with the
	// meta scopes of pushed contexts (root's included if set).
	stack := []int{g.root}
	metaScopes := make([]string, 0, 4)
	if ms := g.contexts[g.root].metaScope; ms != "" {
		metaScopes = append(metaScopes, ms)
	}

	pos := 0
	for pos < len(text) {
		ctx := &g.contexts[stack[len(stack)-1]]
		atLineStart := pos == 0 || text[pos-1] == '\n'

		var fired *compiledRule
		width := 0
		for i := range ctx.rules {
			rule := &ctx.rules[i]
			if rule.lineStart && !atLineStart {
				continue
			}
			loc := rule.pattern.FindStringIndex(text[pos:])
			if loc == nil {
				continue
			}
			fired = rule
			width = loc[1]
			break
		}

		if fired == nil {
			// No rule matched: emit one unmatched character and move on.
			_, size := utf8.DecodeRuneInString(text[pos:])
			tokens = append(tokens, Token{
				Start:  pos,
				End:    pos + size,
				Value:  text[pos : pos+size],
				Scopes: cloneScopes(metaScopes, ""),
			})
			pos += size
			continue
		}

		tokens = append(tokens, Token{
			Start:  pos,
			End:    pos + width,
			Value:  text[pos : pos+width],
			Scopes: cloneScopes(metaScopes, fired.scope),
		})
		pos += width

		if fired.pop && len(stack) > 1 {
			popped := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if g.contexts[popped].metaScope != "" {
				metaScopes = metaScopes[:len(metaScopes)-1]
			}
		}
		if fired.push >= 0 {
			stack = append(stack, fired.push)
			if ms := g.contexts[fired.push].metaScope; ms != "" {
				metaScopes = append(metaScopes, ms)
			}
		}
	}

	return tokens
}

// cloneScopes copies the active meta scopes and appends the rule scope.
// Tokens must not share backing arrays with the mutable tokenizer state.
func cloneScopes(meta []string, ruleScope string) []string {
	if len(meta) == 0 && ruleScope == "" {
		return nil
	}
	scopes := make([]string, 0, len(meta)+1)
	scopes = append(scopes, meta...)
	if ruleScope != "" {
		scopes = append(scopes, ruleScope)
	}
	return scopes
}
