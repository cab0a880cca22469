// Package policy decides, per code construct, whether to highlight,
// render, and inject the prelude.
package policy

import "strings"

// Tag suffixes toggling per-block behaviour. They compose as independent
// boolean flags and may appear in any order.
const (
	SuffixNoPrelude = "-noprelude"
	SuffixNoRender  = "-norender"
)

// targetTags are the language tags identifying Typst blocks.
var targetTags = map[string]bool{
	"typ":   true,
	"typst": true,
}

// Config holds the global switches relevant to policy resolution.
type Config struct {
	// DisableInline leaves inline code spans untouched.
	DisableInline bool
	// TypstDefault treats untagged blocks as Typst.
	TypstDefault bool
	// Render invokes the external compiler for eligible blocks.
	Render bool
}

// Policy is the per-block decision record. It is derived once and never
// mutated afterwards.
type Policy struct {
	Highlight  bool
	Render     bool
	UsePrelude bool
}

// ParseTag splits a fence tag into its base language and suffix flags.
// Suffixes are stripped repeatedly so any combination and order is valid.
func ParseTag(tag string) (base string, noPrelude, noRender bool) {
	base = tag
	for {
		switch {
		case strings.HasSuffix(base, SuffixNoPrelude):
			base = strings.TrimSuffix(base, SuffixNoPrelude)
			noPrelude = true
		case strings.HasSuffix(base, SuffixNoRender):
			base = strings.TrimSuffix(base, SuffixNoRender)
			noRender = true
		default:
			return base, noPrelude, noRender
		}
	}
}

// ResolveBlock derives the policy for a fenced (or indented) block with the
// given tag. An empty tag means the block declared no language. Pure:
// identical inputs always yield the identical Policy.
func ResolveBlock(cfg Config, tag string) Policy {
	base, noPrelude, noRender := ParseTag(tag)

	switch {
	case targetTags[base]:
		// Tagged as Typst.
	case base == "" && cfg.TypstDefault:
		// Untagged and untagged-means-Typst is on.
	default:
		return Policy{}
	}

	return Policy{
		Highlight:  true,
		Render:     cfg.Render && !noRender,
		UsePrelude: !noPrelude,
	}
}

// ResolveInline derives the policy for an inline code span. Inline spans
// are highlighted unless disabled and never rendered.
func ResolveInline(cfg Config) Policy {
	if cfg.DisableInline {
		return Policy{}
	}
	return Policy{Highlight: true}
}
