// Package typsthighlight is an mdbook preprocessor that syntax-highlights
// Typst code in a book's chapters and, optionally, renders each block to an
// image with the external typst compiler.
//
// # Quick Start
//
// Create a service and run it over a parsed book:
//
//	svc, err := typsthighlight.NewService(typsthighlight.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, b, err := book.ParseInput(os.Stdin)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Process(context.Background(), ctx, b); err != nil {
//	    log.Fatal(err)
//	}
//	book.WriteBook(os.Stdout, b)
//
// # Pipeline
//
// Each chapter goes through these stages:
//
//  1. Construct location: fenced blocks and inline spans found via the
//     Goldmark AST, with exact byte ranges into the chapter source.
//  2. Policy resolution: per block, decide highlight / render / prelude
//     from the book configuration and the block's language tag.
//  3. Tokenization: a declarative Typst grammar produces scope-tagged
//     tokens (best-effort, never fails).
//  4. Styling: scopes resolve against a theme by longest prefix and the
//     token text is emitted as escaped, styled HTML fragments.
//  5. Rendering (optional): the typst binary compiles the block to an
//     image; failures fall back to highlight-only output with a warning.
//
// Replacements are spliced back by byte range, so all non-code content is
// returned byte-identical.
//
// # Configuration
//
// Options come from the book's preprocessor table:
//
//	[preprocessor.typst-highlight]
//	disable_inline = false
//	typst_default  = false
//	render         = true
//	format         = "svg"
//
// # Compiler Requirements
//
// Rendering requires the typst binary on PATH (or typst-path in the
// configuration). A missing compiler is not fatal: blocks are highlighted
// only and a warning is emitted per block.
package typsthighlight
