package grammar

import (
	"strings"
	"testing"
)

// testGrammar builds a small grammar exercising nesting, scopes, and
// line-start anchoring.
func testGrammar(t *testing.T) *Grammar {
	t.Helper()

	g, err := Compile(&Definition{
		Name: "test",
		Contexts: map[string]ContextDef{
			"root": {
				Rules: []RuleDef{
					{Match: `//[^\n]*`, Scope: "comment.line"},
					{Match: `"`, Scope: "punctuation.string.begin", Push: "string"},
					{Match: `=+ [^\n]*`, Scope: "markup.heading", LineStart: true},
					{Match: `#let\b`, Scope: "keyword.control"},
					{Match: `#[a-z]+`, Scope: "entity.name.function"},
					{Match: `[0-9]+`, Scope: "constant.numeric"},
					{Match: `[a-z]+`},
					{Match: `[ \t\n]+`},
				},
			},
			"string": {
				MetaScope: "string.quoted.double",
				Rules: []RuleDef{
					{Match: `\\.`, Scope: "constant.character.escape"},
					{Match: `"`, Scope: "punctuation.string.end", Pop: true},
					{Match: `[^"\\]+`},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return g
}

// assertPartition checks the core totality invariant: tokens cover the
// input exactly, with no gaps and no overlaps.
func assertPartition(t *testing.T, input string, tokens []Token) {
	t.Helper()

	pos := 0
	for i, tok := range tokens {
		if tok.Start != pos {
			t.Fatalf("token %d starts at %d, want %d", i, tok.Start, pos)
		}
		if tok.End <= tok.Start {
			t.Fatalf("token %d is empty or reversed: [%d,%d)", i, tok.Start, tok.End)
		}
		if tok.Value != input[tok.Start:tok.End] {
			t.Fatalf("token %d value %q does not match input slice %q", i, tok.Value, input[tok.Start:tok.End])
		}
		pos = tok.End
	}
	if pos != len(input) {
		t.Fatalf("tokens cover %d bytes, input has %d", pos, len(input))
	}
}

func TestTokenizeIsTotal(t *testing.T) {
	t.Parallel()

	g := testGrammar(t)

	inputs := []string{
		"",
		"#let x = 1",
		`"hello \n world"`,
		`"unterminated`,
		"== heading\ntext",
		"???", // nothing matches punctuation
		"héllo wörld",
		"\x00\x01\x02",
		strings.Repeat(`"a\"`, 50),
	}

	for _, input := range inputs {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			tokens := g.Tokenize(input)
			assertPartition(t, input, tokens)
		})
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	t.Parallel()

	if tokens := testGrammar(t).Tokenize(""); len(tokens) != 0 {
		t.Errorf("Tokenize(\"\") = %d tokens, want 0", len(tokens))
	}
}

func TestFirstMatchWinsNotLongest(t *testing.T) {
	t.Parallel()

	// `#let` could also match the later, longer-reaching function rule;
	// declaration order must decide.
	g := testGrammar(t)
	tokens := g.Tokenize("#let")

	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}
	if got := tokens[0].Scopes[len(tokens[0].Scopes)-1]; got != "keyword.control" {
		t.Errorf("scope = %q, want keyword.control", got)
	}
}

func TestNestedScopeStack(t *testing.T) {
	t.Parallel()

	g := testGrammar(t)
	tokens := g.Tokenize(`"a\nb"`)
	assertPartition(t, `"a\nb"`, tokens)

	// The escape token must carry the string meta scope below its own.
	var escape *Token
	for i := range tokens {
		for _, s := range tokens[i].Scopes {
			if s == "constant.character.escape" {
				escape = &tokens[i]
			}
		}
	}
	if escape == nil {
		t.Fatal("no escape token found")
	}
	want := []string{"string.quoted.double", "constant.character.escape"}
	if len(escape.Scopes) != len(want) {
		t.Fatalf("escape scopes = %v, want %v", escape.Scopes, want)
	}
	for i := range want {
		if escape.Scopes[i] != want[i] {
			t.Fatalf("escape scopes = %v, want %v", escape.Scopes, want)
		}
	}
}

func TestUnterminatedContextClosesAtEOF(t *testing.T) {
	t.Parallel()

	g := testGrammar(t)
	input := `"never closed`
	tokens := g.Tokenize(input)
	assertPartition(t, input, tokens)

	// Everything after the opening quote stays inside the string scope;
	// no error, no missing coverage.
	last := tokens[len(tokens)-1]
	if len(last.Scopes) == 0 || last.Scopes[0] != "string.quoted.double" {
		t.Errorf("last token scopes = %v, want string.quoted.double prefix", last.Scopes)
	}
}

func TestUnmatchedCharacterFallback(t *testing.T) {
	t.Parallel()

	g := testGrammar(t)
	tokens := g.Tokenize("?")

	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}
	if len(tokens[0].Scopes) != 0 {
		t.Errorf("fallback token scopes = %v, want none", tokens[0].Scopes)
	}
}

func TestUnmatchedMultibyteAdvancesWholeRune(t *testing.T) {
	t.Parallel()

	// é is not matched by any rule; the fallback must not split it.
	g, err := Compile(&Definition{
		Contexts: map[string]ContextDef{"root": {Rules: []RuleDef{{Match: "x"}}}},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tokens := g.Tokenize("é")
	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}
	if tokens[0].Value != "é" {
		t.Errorf("fallback value = %q, want %q", tokens[0].Value, "é")
	}
}

func TestLineStartAnchoring(t *testing.T) {
	t.Parallel()

	g := testGrammar(t)

	tests := []struct {
		name        string
		input       string
		wantHeading bool
	}{
		{"heading at input start", "= title", true},
		{"heading after newline", "text\n= title", true},
		{"equals mid line is not a heading", "a = b", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens := g.Tokenize(tt.input)
			assertPartition(t, tt.input, tokens)

			found := false
			for _, tok := range tokens {
				for _, s := range tok.Scopes {
					if s == "markup.heading" {
						found = true
					}
				}
			}
			if found != tt.wantHeading {
				t.Errorf("heading token found = %v, want %v", found, tt.wantHeading)
			}
		})
	}
}
