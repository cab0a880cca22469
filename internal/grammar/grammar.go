// Package grammar implements a declarative lexical grammar engine.
//
// A grammar is a set of named contexts, each an ordered list of pattern
// rules. Matching starts in the "root" context; a rule may push a nested
// context (whose meta scope joins the scope stack) or pop back out. The
// first rule that matches at the current position wins; declaration order
// is the only tie-break.
package grammar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// Sentinel errors for grammar loading and compilation.
var (
	ErrParse          = errors.New("failed to parse grammar")
	ErrNoRootContext  = errors.New("grammar has no root context")
	ErrUnknownContext = errors.New("rule pushes unknown context")
	ErrBadPattern     = errors.New("invalid rule pattern")
	ErrEmptyMatch     = errors.New("rule pattern matches the empty string")
)

// rootContextName is the context active at the start of tokenization.
const rootContextName = "root"

// Definition is the on-disk (YAML) form of a grammar.
type Definition struct {
	Name     string                `yaml:"name"`
	Contexts map[string]ContextDef `yaml:"contexts"`
}

// ContextDef declares one named context.
type ContextDef struct {
	// MetaScope, if set, is carried by every token emitted while the
	// context is on the stack.
	MetaScope string    `yaml:"meta_scope"`
	Rules     []RuleDef `yaml:"rules"`
}

// RuleDef declares one pattern rule.
type RuleDef struct {
	Match string `yaml:"match"`
	Scope string `yaml:"scope"`
	Push  string `yaml:"push"`
	Pop   bool   `yaml:"pop"`
	// LineStart restricts the rule to positions at the start of a line.
	LineStart bool `yaml:"line_start"`
}

// Grammar is a compiled, immutable grammar ready for tokenization.
// Contexts live in a flat arena and reference each other by index.
type Grammar struct {
	name     string
	contexts []compiledContext
	root     int
}

type compiledContext struct {
	name      string
	metaScope string
	rules     []compiledRule
}

type compiledRule struct {
	pattern   *regexp.Regexp
	scope     string
	push      int // context index, -1 for none
	pop       bool
	lineStart bool
}

// Name returns the grammar's declared name.
func (g *Grammar) Name() string {
	return g.name
}

// Load parses a YAML grammar definition and compiles it.
func Load(data []byte) (*Grammar, error) {
	var def Definition
	if err := yaml.UnmarshalWithOptions(data, &def, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return Compile(&def)
}

// Compile turns a Definition into an executable Grammar.
// Every pattern is anchored to the current position and checked to never
// match the empty string, which guarantees tokenization progress.
func Compile(def *Definition) (*Grammar, error) {
	if _, ok := def.Contexts[rootContextName]; !ok {
		return nil, ErrNoRootContext
	}

	// Assign arena slots first so rules can reference contexts in any order.
	// Root goes first; the rest sorted by name for deterministic layout.
	names := make([]string, 0, len(def.Contexts))
	names = append(names, rootContextName)
	for name := range def.Contexts {
		if name != rootContextName {
			names = append(names, name)
		}
	}
	sortNames(names[1:])

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	g := &Grammar{
		name:     def.Name,
		contexts: make([]compiledContext, len(names)),
		root:     0,
	}

	for i, name := range names {
		ctxDef := def.Contexts[name]
		compiled := compiledContext{
			name:      name,
			metaScope: ctxDef.MetaScope,
			rules:     make([]compiledRule, 0, len(ctxDef.Rules)),
		}

		for ri, rule := range ctxDef.Rules {
			re, err := regexp.Compile("^(?:" + rule.Match + ")")
			if err != nil {
				return nil, fmt.Errorf("%w: context %q rule %d: %v", ErrBadPattern, name, ri, err)
			}
			if re.MatchString("") {
				return nil, fmt.Errorf("%w: context %q rule %d: %q", ErrEmptyMatch, name, ri, rule.Match)
			}

			push := -1
			if rule.Push != "" {
				target, ok := index[rule.Push]
				if !ok {
					return nil, fmt.Errorf("%w: context %q rule %d pushes %q", ErrUnknownContext, name, ri, rule.Push)
				}
				push = target
			}

			compiled.rules = append(compiled.rules, compiledRule{
				pattern:   re,
				scope:     rule.Scope,
				push:      push,
				pop:       rule.Pop,
				lineStart: rule.LineStart,
			})
		}

		g.contexts[i] = compiled
	}

	return g, nil
}

// sortNames sorts context names in place without pulling in sort for a
// three-element slice in the common case.
func sortNames(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && strings.Compare(names[j], names[j-1]) < 0; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
