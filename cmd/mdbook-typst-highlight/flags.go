package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// cliFlags holds the command-line overrides. Everything here can also be
// set in book.toml; flags win when both are present.
type cliFlags struct {
	workers   int
	timeout   string
	typstPath string
	format    string
	quiet     bool
	verbose   bool
	version   bool
}

// parseFlags parses command-line flags and returns positional args.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("mdbook-typst-highlight", flag.ContinueOnError)
	f := &cliFlags{}

	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "compiler timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.typstPath, "typst-path", "", "typst binary name or path")
	fs.StringVar(&f.format, "format", "", "render format: svg or png")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "suppress warnings")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show processing detail")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() { printUsage(fs.Output()) }

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}

// printUsage writes command usage.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `mdbook-typst-highlight - highlight and render Typst code in mdbook books

Usage:
  mdbook-typst-highlight [flags]            run as preprocessor (JSON on stdin)
  mdbook-typst-highlight supports RENDERER  report renderer support

Configuration lives in book.toml under [preprocessor.typst-highlight];
flags override it.

Flags:
  -w, --workers int       parallel workers (0 = auto)
  -t, --timeout string    compiler timeout (e.g., 30s, 2m)
      --typst-path string typst binary name or path
      --format string     render format: svg or png
  -q, --quiet             suppress warnings
  -v, --verbose           show processing detail
      --version           print version and exit
`)
}
