package typsthighlight_test

import (
	"context"
	"fmt"
	"strings"

	typsthighlight "github.com/alnah/go-typst-highlight"
	"github.com/alnah/go-typst-highlight/internal/book"
)

// Example demonstrates highlighting Typst code blocks in a book chapter.
// Rendering is off, so no external compiler is needed.
func Example() {
	svc, err := typsthighlight.NewService(typsthighlight.DefaultConfig())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	path := "intro.md"
	b := &book.Book{Sections: []book.Item{{Chapter: &book.Chapter{
		Name:    "Intro",
		Content: "# Intro\n\n```typ\n#let answer = 42\n```\n",
		Path:    &path,
	}}}}

	if err := svc.Process(context.Background(), &book.Context{Root: "."}, b); err != nil {
		fmt.Println("error:", err)
		return
	}

	content := b.Sections[0].Chapter.Content
	if strings.Contains(content, `<code class="language-typ hljs">`) {
		fmt.Println("chapter highlighted")
	}
	// Output: chapter highlighted
}

// Example_disableInline shows leaving inline code spans untouched.
func Example_disableInline() {
	cfg := typsthighlight.DefaultConfig()
	cfg.DisableInline = true

	svc, err := typsthighlight.NewService(cfg)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	content := "prose with `#let` inline\n"
	b := &book.Book{Sections: []book.Item{{Chapter: &book.Chapter{
		Name:    "One",
		Content: content,
	}}}}

	if err := svc.Process(context.Background(), &book.Context{Root: "."}, b); err != nil {
		fmt.Println("error:", err)
		return
	}

	if b.Sections[0].Chapter.Content == content {
		fmt.Println("inline spans untouched")
	}
	// Output: inline spans untouched
}
