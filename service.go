package typsthighlight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-typst-highlight/internal/assets"
	"github.com/alnah/go-typst-highlight/internal/book"
	"github.com/alnah/go-typst-highlight/internal/grammar"
	"github.com/alnah/go-typst-highlight/internal/pipeline"
	"github.com/alnah/go-typst-highlight/internal/policy"
	"github.com/alnah/go-typst-highlight/internal/style"
	"github.com/alnah/go-typst-highlight/internal/typst"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.Renderer      = (*slotRenderer)(nil)
	_ pipeline.ArtifactStore = (*pipeline.DirStore)(nil)
)

// DiagnosticFunc receives block-scoped warnings. Diagnostics are
// informative only: they never interrupt processing.
type DiagnosticFunc func(format string, args ...any)

// Option configures a Service.
type Option func(*Service)

// WithDiagnostics sets the warning sink. The default writes to stderr.
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.warnf = fn
		}
	}
}

// WithRenderer replaces the compiler-backed renderer (for tests).
func WithRenderer(r pipeline.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithStore replaces the artifact store (for tests).
func WithStore(store pipeline.ArtifactStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// Service runs the highlight-and-render pipeline over a book.
type Service struct {
	cfg      Config
	grammar  *grammar.Grammar
	theme    *style.Theme
	renderer pipeline.Renderer
	store    pipeline.ArtifactStore
	warnf    DiagnosticFunc
}

// NewService loads the grammar and theme, prepares the compiler invoker,
// and returns a ready Service. Configuration errors abort here, before any
// chapter is touched.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	grammarData, err := assets.LoadGrammar(assets.DefaultGrammarName)
	if err != nil {
		return nil, fmt.Errorf("loading grammar: %w", err)
	}
	g, err := grammar.Load(grammarData)
	if err != nil {
		return nil, fmt.Errorf("compiling grammar: %w", err)
	}

	themeData, err := assets.LoadTheme(cfg.Theme)
	if err != nil {
		return nil, fmt.Errorf("loading theme: %w", err)
	}
	theme, err := style.Load(themeData)
	if err != nil {
		return nil, fmt.Errorf("parsing theme %q: %w", cfg.Theme, err)
	}

	s := &Service{
		cfg:     cfg,
		grammar: g,
		theme:   theme,
		warnf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	// Create the compiler-backed renderer if not injected (e.g., by tests)
	if s.renderer == nil {
		inv, err := typst.NewInvoker(
			typst.WithBinary(cfg.TypstPath),
			typst.WithFormat(cfg.Format),
			typst.WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, err
		}
		s.renderer = &slotRenderer{
			invoker: inv,
			slots:   newRenderSlots(ResolveWorkers(cfg.Workers)),
		}
	}

	return s, nil
}

// Process transforms every chapter of the book in place. Chapters run in
// parallel under a bounded limit; within each chapter, replacements are
// joined back in source order. The only error paths are cancellation and
// artifact-store failure during setup — per-block conditions degrade to
// diagnostics.
func (s *Service) Process(ctx context.Context, bctx *book.Context, b *book.Book) error {
	workers := ResolveWorkers(s.cfg.Workers)

	store := s.store
	if store == nil {
		store = &pipeline.DirStore{Dir: filepath.Join(bctx.Root, "src", s.cfg.ImageDir)}
	}

	transformer := &pipeline.Transformer{
		Grammar: s.grammar,
		Theme:   s.theme,
		Policy: policy.Config{
			DisableInline: s.cfg.DisableInline,
			TypstDefault:  s.cfg.TypstDefault,
			Render:        s.cfg.Render,
		},
		Renderer: s.renderer,
		Store:    store,
		Workers:  workers,
		Warnf:    s.warnf,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ch := range b.Chapters() {
		ch := ch
		g.Go(func() error {
			content, err := transformer.TransformChapter(gctx, ch.Name, s.imageBase(ch), ch.Content)
			if err != nil {
				return err
			}
			ch.Content = content
			return nil
		})
	}
	return g.Wait()
}

// imageBase computes the relative prefix from a chapter's output location
// to the artifact directory. mdbook mirrors the src tree, so a chapter
// nested n directories deep needs n "../" hops back to the src root.
func (s *Service) imageBase(ch *book.Chapter) string {
	depth := 0
	if ch.Path != nil {
		depth = strings.Count(*ch.Path, "/")
	}
	return strings.Repeat("../", depth) + s.cfg.ImageDir + "/"
}

// slotRenderer gates compiler invocations behind a counting semaphore so
// chapter-level parallelism cannot spawn unbounded subprocesses.
type slotRenderer struct {
	invoker *typst.Invoker
	slots   renderSlots
}

func (r *slotRenderer) Render(ctx context.Context, source string, usePrelude bool) (typst.Result, error) {
	if err := r.slots.acquire(ctx); err != nil {
		return typst.Result{}, err
	}
	defer r.slots.release()

	return r.invoker.Render(ctx, source, usePrelude)
}
