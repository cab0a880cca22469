package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-typst-highlight/internal/grammar"
	"github.com/alnah/go-typst-highlight/internal/policy"
	"github.com/alnah/go-typst-highlight/internal/style"
	"github.com/alnah/go-typst-highlight/internal/typst"
)

// HTML wrappers around highlighted fragments. The hljs class keeps
// mdbook's stock stylesheet rules (padding, scroll) applying to the block.
const (
	blockOpen  = `<pre style="margin: 0"><code class="language-typ hljs">`
	blockClose = "</code></pre>\n"

	inlineOpen  = `<code class="hljs">`
	inlineClose = `</code>`
)

// Renderer produces an image artifact for a snippet. The error return is
// reserved for cancellation; render failures travel inside the Result.
type Renderer interface {
	Render(ctx context.Context, source string, usePrelude bool) (typst.Result, error)
}

// ArtifactStore persists a rendered artifact and returns the filename it
// can be referenced by.
type ArtifactStore interface {
	Store(artifact []byte, format, composed string) (string, error)
}

// Transformer rewrites one chapter at a time. Grammar and theme are
// read-only shared state, so a single Transformer is safe for concurrent
// chapters.
type Transformer struct {
	Grammar *grammar.Grammar
	Theme   *style.Theme
	Policy  policy.Config

	// Renderer and Store are consulted only when a block's policy says
	// render; both must be set in that case.
	Renderer Renderer
	Store    ArtifactStore

	// Workers bounds concurrent construct processing within a chapter.
	Workers int

	// Warnf receives block-scoped diagnostics (render failures).
	Warnf func(format string, args ...any)
}

// TransformChapter returns the chapter content with every eligible code
// construct replaced. Constructs are processed in parallel but spliced in
// source order; non-code content passes through byte-identical. Only
// cancellation produces an error; per-block failures degrade to
// highlight-only output with a diagnostic.
func (t *Transformer) TransformChapter(ctx context.Context, chapter, imageBase, content string) (string, error) {
	constructs := Locate([]byte(content))
	if len(constructs) == 0 {
		return content, nil
	}

	// results[i] is the replacement text for constructs[i]; the empty
	// string keeps the original bytes.
	results := make([]string, len(constructs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workerLimit())
	for i := range constructs {
		i := i
		g.Go(func() error {
			replacement, err := t.transform(gctx, chapter, imageBase, constructs[i])
			if err != nil {
				return err
			}
			results[i] = replacement
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return splice(content, constructs, results), nil
}

func (t *Transformer) workerLimit() int {
	if t.Workers > 0 {
		return t.Workers
	}
	return 1
}

// transform produces the replacement for one construct, or "" to leave it
// unchanged. The replacement is assembled fully before being returned, so
// a partially transformed construct is never visible.
func (t *Transformer) transform(ctx context.Context, chapter, imageBase string, c Construct) (string, error) {
	switch c.Kind {
	case Inline:
		pol := policy.ResolveInline(t.Policy)
		if !pol.Highlight {
			return "", nil
		}
		return inlineOpen + t.highlight(c.Source) + inlineClose, nil

	case Fenced:
		pol := policy.ResolveBlock(t.Policy, c.Tag)
		if !pol.Highlight {
			return "", nil
		}

		source := strings.TrimSuffix(c.Source, "\n")
		highlighted := blockOpen + t.highlight(source) + blockClose

		out := highlighted
		if pol.Render {
			img, err := t.renderImage(ctx, chapter, imageBase, source, pol.UsePrelude)
			if err != nil {
				return "", err
			}
			// On render failure the diagnostic is already out and the
			// highlighted block stands alone.
			if img != "" {
				out = img + "\n\n" + highlighted
			}
		}
		return requote(out, c.Prefix), nil
	}

	return "", nil
}

// highlight tokenizes source and renders styled fragments.
func (t *Transformer) highlight(source string) string {
	return style.Fragments(t.Grammar.Tokenize(source), t.Theme)
}

// renderImage invokes the external compiler and stores the artifact.
// Returns the img element, or "" after emitting a diagnostic when the
// render cannot be used.
func (t *Transformer) renderImage(ctx context.Context, chapter, imageBase, source string, usePrelude bool) (string, error) {
	res, err := t.Renderer.Render(ctx, source, usePrelude)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		t.warnf("chapter %q: typst render skipped: %s", chapter, res.Reason)
		return "", nil
	}

	composed := typst.Compose(source, usePrelude)
	name, err := t.Store.Store(res.Artifact, res.Format, composed)
	if err != nil {
		t.warnf("chapter %q: storing rendered artifact: %v", chapter, err)
		return "", nil
	}

	return fmt.Sprintf(`<img class="typst-render" src="%s%s" alt="rendered Typst code">`, imageBase, name), nil
}

func (t *Transformer) warnf(format string, args ...any) {
	if t.Warnf != nil {
		t.Warnf(format, args...)
	}
}

// requote re-applies a blockquote marker prefix to every line of a
// replacement. The construct's range starts at column 0 and swallows the
// markers, so without this a block inside a quote would split it.
func requote(replacement, prefix string) string {
	if prefix == "" {
		return replacement
	}
	trimmed, hadNewline := strings.CutSuffix(replacement, "\n")
	out := prefix + strings.ReplaceAll(trimmed, "\n", "\n"+prefix)
	if hadNewline {
		out += "\n"
	}
	return out
}

// splice rebuilds content with replacements applied in source order.
func splice(content string, constructs []Construct, results []string) string {
	var b strings.Builder
	b.Grow(len(content))

	last := 0
	for i, c := range constructs {
		if results[i] == "" {
			continue
		}
		b.WriteString(content[last:c.Start])
		b.WriteString(results[i])
		last = c.Stop
	}
	b.WriteString(content[last:])

	return b.String()
}
