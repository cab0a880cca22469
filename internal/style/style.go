// Package style maps token scopes to visual styles and renders styled
// HTML fragments.
package style

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/goccy/go-yaml"

	"github.com/alnah/go-typst-highlight/internal/grammar"
)

// Sentinel errors for theme loading.
var (
	ErrParse  = errors.New("failed to parse theme")
	ErrColour = errors.New("invalid colour value")
)

// Style is the visual treatment of one scope.
// Color is a CSS colour value: a hex colour (normalised at load time) or a
// raw CSS expression such as var(--fg).
type Style struct {
	Color  string
	Bold   bool
	Italic bool
}

// IsZero reports whether the style applies no treatment at all.
func (s Style) IsZero() bool {
	return s.Color == "" && !s.Bold && !s.Italic
}

// Theme maps scope prefixes to styles.
type Theme struct {
	name     string
	fallback Style
	entries  []entry
}

type entry struct {
	scope string
	style Style
}

// definition is the on-disk (YAML) form of a theme.
type definition struct {
	Name    string    `yaml:"name"`
	Default styleDef  `yaml:"default"`
	Rules   []ruleDef `yaml:"rules"`
}

type styleDef struct {
	Color  string `yaml:"color"`
	Bold   bool   `yaml:"bold"`
	Italic bool   `yaml:"italic"`
}

type ruleDef struct {
	Scope  string `yaml:"scope"`
	Color  string `yaml:"color"`
	Bold   bool   `yaml:"bold"`
	Italic bool   `yaml:"italic"`
}

// Name returns the theme's declared name.
func (t *Theme) Name() string {
	return t.name
}

// Load parses a YAML theme definition. Hex colours are validated and
// normalised through chroma; non-hex values (CSS variables, keywords) pass
// through untouched.
func Load(data []byte) (*Theme, error) {
	var def definition
	if err := yaml.UnmarshalWithOptions(data, &def, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	fallback, err := toStyle(styleDef(def.Default))
	if err != nil {
		return nil, fmt.Errorf("default style: %w", err)
	}

	t := &Theme{
		name:     def.Name,
		fallback: fallback,
		entries:  make([]entry, 0, len(def.Rules)),
	}
	for _, rule := range def.Rules {
		st, err := toStyle(styleDef{Color: rule.Color, Bold: rule.Bold, Italic: rule.Italic})
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", rule.Scope, err)
		}
		t.entries = append(t.entries, entry{scope: rule.Scope, style: st})
	}

	return t, nil
}

func toStyle(def styleDef) (Style, error) {
	color := def.Color
	if strings.HasPrefix(color, "#") {
		c := chroma.ParseColour(color)
		if !c.IsSet() {
			return Style{}, fmt.Errorf("%w: %q", ErrColour, color)
		}
		color = c.String()
	}
	return Style{Color: color, Bold: def.Bold, Italic: def.Italic}, nil
}

// Resolve picks the style for a token's scope stack. The most specific
// scope is consulted first; within one scope the entry with the longest
// matching prefix wins. Tokens whose scopes match nothing get the theme's
// default style, so every producible scope has a resolvable style.
func (t *Theme) Resolve(scopes []string) Style {
	for i := len(scopes) - 1; i >= 0; i-- {
		best := -1
		bestLen := -1
		for ei := range t.entries {
			prefix := t.entries[ei].scope
			if !scopeHasPrefix(scopes[i], prefix) {
				continue
			}
			if len(prefix) > bestLen {
				best = ei
				bestLen = len(prefix)
			}
		}
		if best >= 0 {
			return t.entries[best].style
		}
	}
	return t.fallback
}

// scopeHasPrefix reports whether scope equals prefix or extends it at a
// dot boundary ("comment" matches "comment.line" but not "commentary").
func scopeHasPrefix(scope, prefix string) bool {
	if !strings.HasPrefix(scope, prefix) {
		return false
	}
	return len(scope) == len(prefix) || scope[len(prefix)] == '.'
}

// Fragments renders tokens as a sequence of styled HTML fragments.
// Text is HTML-escaped before wrapping. Unscoped tokens are emitted bare;
// scoped tokens get a span carrying the resolved inline style. Pure: the
// same tokens and theme always produce byte-identical output.
func Fragments(tokens []grammar.Token, theme *Theme) string {
	var b strings.Builder
	for _, tok := range tokens {
		escaped := html.EscapeString(tok.Value)
		if len(tok.Scopes) == 0 {
			b.WriteString(escaped)
			continue
		}
		st := theme.Resolve(tok.Scopes)
		if st.IsZero() {
			b.WriteString(escaped)
			continue
		}
		b.WriteString(`<span style="`)
		b.WriteString(inlineCSS(st))
		b.WriteString(`">`)
		b.WriteString(escaped)
		b.WriteString(`</span>`)
	}
	return b.String()
}

// inlineCSS serialises a style to a CSS declaration list.
// Property order is fixed so output is deterministic.
func inlineCSS(st Style) string {
	var parts []string
	if st.Color != "" {
		parts = append(parts, "color:"+st.Color)
	}
	if st.Bold {
		parts = append(parts, "font-weight:bold")
	}
	if st.Italic {
		parts = append(parts, "font-style:italic")
	}
	return strings.Join(parts, ";")
}
