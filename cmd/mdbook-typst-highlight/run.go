package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	typsthighlight "github.com/alnah/go-typst-highlight"
	"github.com/alnah/go-typst-highlight/internal/book"
)

// supportsRenderer reports whether the preprocessor's output makes sense
// for a renderer. Highlighted output is HTML, so only html qualifies.
func supportsRenderer(renderer string) bool {
	return renderer == "html"
}

// run executes one preprocessor round: parse [context, book] from in,
// transform, write the book to out.
func run(ctx context.Context, flags *cliFlags, in io.Reader, out io.Writer) error {
	bctx, b, err := book.ParseInput(in)
	if err != nil {
		return err
	}

	cfg, err := typsthighlight.ConfigFromContext(bctx)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(&cfg, flags); err != nil {
		return err
	}

	opts := []typsthighlight.Option{}
	if flags.quiet {
		opts = append(opts, typsthighlight.WithDiagnostics(func(string, ...any) {}))
	}

	svc, err := typsthighlight.NewService(cfg, opts...)
	if err != nil {
		return err
	}

	if flags.verbose {
		fmt.Fprintf(os.Stderr, "processing %d chapters (render=%v, format=%s)\n",
			len(b.Chapters()), cfg.Render, cfg.Format)
	}

	if err := svc.Process(ctx, bctx, b); err != nil {
		return err
	}

	return book.WriteBook(out, b)
}

// applyFlagOverrides lets command-line flags win over book.toml values.
func applyFlagOverrides(cfg *typsthighlight.Config, flags *cliFlags) error {
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.typstPath != "" {
		cfg.TypstPath = flags.typstPath
	}
	if flags.format != "" {
		cfg.Format = flags.format
	}
	if flags.timeout != "" {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout %q: %w", flags.timeout, err)
		}
		cfg.Timeout = d
	}
	return cfg.Validate()
}
