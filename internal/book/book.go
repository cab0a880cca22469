// Package book models the mdbook preprocessor boundary: the [context,
// book] JSON document received on stdin and the transformed book written
// back to stdout. Unknown variants and fields round-trip untouched.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrProtocol indicates malformed preprocessor input.
var ErrProtocol = errors.New("malformed preprocessor input")

// Book is the chapter tree owned by the host framework. The preprocessor
// receives a mutable view, edits chapter contents in place, and returns it.
type Book struct {
	Sections []Item `json:"sections"`

	// mdbook marks its Book struct non-exhaustive; preserve the marker.
	NonExhaustive json.RawMessage `json:"__non_exhaustive,omitempty"`
}

// Item is one entry of the tree: a chapter, or an opaque variant
// (separator, part title) carried through verbatim.
type Item struct {
	Chapter *Chapter
	raw     json.RawMessage
}

// Chapter is a single book chapter with its markdown content and nested
// sub-chapters.
type Chapter struct {
	Name        string          `json:"name"`
	Content     string          `json:"content"`
	Number      json.RawMessage `json:"number"`
	SubItems    []Item          `json:"sub_items"`
	Path        *string         `json:"path"`
	SourcePath  *string         `json:"source_path"`
	ParentNames []string        `json:"parent_names"`
}

// UnmarshalJSON decodes a chapter item and keeps every other variant raw.
func (it *Item) UnmarshalJSON(data []byte) error {
	var probe struct {
		Chapter *Chapter `json:"Chapter"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Chapter != nil {
		it.Chapter = probe.Chapter
		return nil
	}
	it.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Chapter != nil {
		return json.Marshal(struct {
			Chapter *Chapter `json:"Chapter"`
		}{it.Chapter})
	}
	if it.raw == nil {
		return nil, fmt.Errorf("%w: empty book item", ErrProtocol)
	}
	return it.raw, nil
}

// Context is the preprocessor context supplied by mdbook. Only the fields
// the preprocessor reads are modelled; the context is not echoed back.
type Context struct {
	Root          string `json:"root"`
	Config        Config `json:"config"`
	Renderer      string `json:"renderer"`
	MdbookVersion string `json:"mdbook_version"`
}

// Config is the book configuration subset relevant here.
type Config struct {
	Preprocessor map[string]map[string]any `json:"preprocessor"`
}

// PreprocessorConfig returns the option table for the named preprocessor,
// or nil if the book declares none.
func (c *Context) PreprocessorConfig(name string) map[string]any {
	return c.Config.Preprocessor[name]
}

// ParseInput reads the [context, book] array mdbook writes to the
// preprocessor's stdin.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var parts []json.RawMessage
	if err := json.NewDecoder(r).Decode(&parts); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("%w: expected [context, book], got %d elements", ErrProtocol, len(parts))
	}

	var ctx Context
	if err := json.Unmarshal(parts[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: context: %v", ErrProtocol, err)
	}

	var b Book
	if err := json.Unmarshal(parts[1], &b); err != nil {
		return nil, nil, fmt.Errorf("%w: book: %v", ErrProtocol, err)
	}

	return &ctx, &b, nil
}

// WriteBook serialises the transformed book to the host on a single line.
func WriteBook(w io.Writer, b *Book) error {
	if err := json.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("encoding book: %w", err)
	}
	return nil
}

// Chapters returns pointers to every chapter in depth-first source order.
// Mutating the returned chapters mutates the book.
func (b *Book) Chapters() []*Chapter {
	var out []*Chapter
	collectChapters(b.Sections, &out)
	return out
}

func collectChapters(items []Item, out *[]*Chapter) {
	for i := range items {
		ch := items[i].Chapter
		if ch == nil {
			continue
		}
		*out = append(*out, ch)
		collectChapters(ch.SubItems, out)
	}
}
