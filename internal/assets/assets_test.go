package assets

import (
	"errors"
	"testing"

	"github.com/alnah/go-typst-highlight/internal/grammar"
	"github.com/alnah/go-typst-highlight/internal/style"
)

func TestDefaultGrammarCompiles(t *testing.T) {
	t.Parallel()

	data, err := LoadGrammar(DefaultGrammarName)
	if err != nil {
		t.Fatalf("LoadGrammar() error = %v", err)
	}

	g, err := grammar.Load(data)
	if err != nil {
		t.Fatalf("grammar.Load() error = %v", err)
	}
	if g.Name() != DefaultGrammarName {
		t.Errorf("Name() = %q, want %q", g.Name(), DefaultGrammarName)
	}
}

func TestDefaultThemeLoads(t *testing.T) {
	t.Parallel()

	data, err := LoadTheme(DefaultThemeName)
	if err != nil {
		t.Fatalf("LoadTheme() error = %v", err)
	}

	theme, err := style.Load(data)
	if err != nil {
		t.Fatalf("style.Load() error = %v", err)
	}

	// The fallback must be the CSS variable that tracks the page theme.
	if got := theme.Resolve([]string{"no.such.scope"}); got.Color != "var(--fg)" {
		t.Errorf("fallback colour = %q, want var(--fg)", got.Color)
	}
}

func TestLoadUnknownAssets(t *testing.T) {
	t.Parallel()

	if _, err := LoadGrammar("nope"); !errors.Is(err, ErrGrammarNotFound) {
		t.Errorf("LoadGrammar(nope) error = %v, want %v", err, ErrGrammarNotFound)
	}
	if _, err := LoadTheme("nope"); !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("LoadTheme(nope) error = %v, want %v", err, ErrThemeNotFound)
	}
}

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"solarized-dark", false},
		{"typst", false},
		{"", true},
		{"../escape", true},
		{"dir/name", true},
		{"back\\slash", true},
		{"with.dot", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateAssetName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAssetName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAssetName) {
				t.Errorf("error = %v, want %v", err, ErrInvalidAssetName)
			}
		})
	}
}
