// Package assets provides embedded grammar and theme definitions.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed grammars/*
var grammars embed.FS

//go:embed themes/*
var themes embed.FS

// Sentinel errors for asset loading.
var (
	ErrGrammarNotFound  = errors.New("grammar not found")
	ErrThemeNotFound    = errors.New("theme not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// Default asset names.
const (
	DefaultGrammarName = "typst"
	DefaultThemeName   = "solarized-dark"
)

// LoadGrammar returns the raw YAML definition of an embedded grammar by name.
// The name should not include the .yaml extension.
func LoadGrammar(name string) ([]byte, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	content, err := grammars.ReadFile("grammars/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrGrammarNotFound, name)
	}

	return content, nil
}

// LoadTheme returns the raw YAML definition of an embedded theme by name.
// The name should not include the .yaml extension.
func LoadTheme(name string) ([]byte, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	content, err := themes.ReadFile("themes/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}

	return content, nil
}

// ValidateAssetName checks that an asset name is safe for use as a filename.
// Returns ErrInvalidAssetName if the name is empty or contains path separators,
// dots (which could allow extension manipulation), or traversal characters.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
