// Package pipeline walks chapter markdown, locates code constructs, and
// splices highlighted (and optionally rendered) replacements back into the
// source, leaving every other byte untouched.
package pipeline

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// Kind discriminates code constructs.
type Kind int

// Code construct kinds.
const (
	Fenced Kind = iota
	Inline
)

// Construct is one code region of a chapter: its kind, declared tag (empty
// for untagged fenced blocks and always empty for inline spans), raw source
// text, and the byte range of the whole construct in the chapter, fences
// and backticks included. Prefix carries the blockquote markers of the
// opening line ("> ", "> > ") so a replacement can be re-quoted line by
// line instead of splitting the surrounding quote.
type Construct struct {
	Kind   Kind
	Tag    string
	Source string
	Prefix string
	Start  int
	Stop   int
}

// closingFence matches a fence terminator line, tolerating blockquote
// markers and indentation.
var closingFence = regexp.MustCompile("^[ >]{0,8}(`{3,}|~{3,})[ \t]*$")

// Locate parses chapter markdown and returns its code constructs in source
// order. Fenced and indented code blocks and inline code spans are
// reported; everything else is ignored.
func Locate(source []byte) []Construct {
	doc := goldmark.New().Parser().Parse(gtext.NewReader(source))

	var constructs []Construct
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			if c, ok := fencedConstruct(node, source); ok {
				constructs = append(constructs, c)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if c, ok := indentedConstruct(node, source); ok {
				constructs = append(constructs, c)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			if c, ok := inlineConstruct(node, source); ok {
				constructs = append(constructs, c)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	sort.SliceStable(constructs, func(i, j int) bool {
		return constructs[i].Start < constructs[j].Start
	})
	return constructs
}

// fencedConstruct computes the full byte range of a fenced block, opening
// and closing fence lines included. A block missing its closing fence ends
// where its content ends.
func fencedConstruct(n *ast.FencedCodeBlock, source []byte) (Construct, bool) {
	lines := n.Lines()

	var start int
	switch {
	case n.Info != nil && n.Info.Segment.Len() > 0:
		start = lineStartBefore(source, n.Info.Segment.Start)
	case lines.Len() > 0:
		// Untagged: the opening fence is the line before the first
		// content line.
		start = lineStartBefore(source, lines.At(0).Start-1)
	default:
		// Untagged and empty: nothing to do.
		return Construct{}, false
	}

	var afterContent int
	if lines.Len() > 0 {
		afterContent = lines.At(lines.Len() - 1).Stop
	} else {
		afterContent = lineEndAfter(source, n.Info.Segment.Stop)
	}

	stop := afterContent
	if end, ok := closingFenceEnd(source, afterContent); ok {
		stop = end
	}

	return Construct{
		Kind:   Fenced,
		Tag:    string(n.Language(source)),
		Source: segmentsValue(lines, source),
		Prefix: markerPrefix(source, start),
		Start:  start,
		Stop:   stop,
	}, true
}

// indentedConstruct covers an indented code block: its lines exactly.
func indentedConstruct(n *ast.CodeBlock, source []byte) (Construct, bool) {
	lines := n.Lines()
	if lines.Len() == 0 {
		return Construct{}, false
	}
	start := lineStartBefore(source, lines.At(0).Start)
	return Construct{
		Kind:   Fenced,
		Source: segmentsValue(lines, source),
		Prefix: markerPrefix(source, start),
		Start:  start,
		Stop:   lines.At(lines.Len() - 1).Stop,
	}, true
}

// inlineConstruct covers an inline code span, backtick delimiters included.
func inlineConstruct(n *ast.CodeSpan, source []byte) (Construct, bool) {
	first, ok := n.FirstChild().(*ast.Text)
	if !ok {
		return Construct{}, false
	}
	last := n.LastChild().(*ast.Text)

	contentStart := first.Segment.Start
	contentStop := last.Segment.Stop

	start := contentStart
	for start > 0 && source[start-1] == '`' {
		start--
	}
	stop := contentStop
	for stop < len(source) && source[stop] == '`' {
		stop++
	}

	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		b.Write(t.Segment.Value(source))
	}

	return Construct{
		Kind:   Inline,
		Source: trimCodeSpan(b.String()),
		Start:  start,
		Stop:   stop,
	}, true
}

// trimCodeSpan applies CommonMark inline-code normalisation: line endings
// become spaces, and one leading plus one trailing space are stripped when
// the content is padded on both sides and not all blank.
func trimCodeSpan(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "" {
		s = s[1 : len(s)-1]
	}
	return s
}

// segmentsValue concatenates line segments, honouring segment padding.
func segmentsValue(lines *gtext.Segments, source []byte) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// markerPrefix returns the blockquote marker run at the start of the line
// beginning at pos, or "" when the line is not quoted. Plain indentation
// carries no marker and needs no re-quoting.
func markerPrefix(source []byte, pos int) string {
	end := pos
	for end < len(source) && (source[end] == '>' || source[end] == ' ') {
		end++
	}
	prefix := source[pos:end]
	if !bytes.ContainsRune(prefix, '>') {
		return ""
	}
	return string(prefix)
}

// lineStartBefore returns the offset of the first byte of the line
// containing pos.
func lineStartBefore(source []byte, pos int) int {
	if pos <= 0 {
		return 0
	}
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

// lineEndAfter returns the offset just past the line containing pos,
// newline included (or end of input).
func lineEndAfter(source []byte, pos int) int {
	idx := bytes.IndexByte(source[pos:], '\n')
	if idx < 0 {
		return len(source)
	}
	return pos + idx + 1
}

// closingFenceEnd checks whether the line starting at pos is a closing
// fence and, if so, returns the offset just past it.
func closingFenceEnd(source []byte, pos int) (int, bool) {
	if pos >= len(source) {
		return 0, false
	}
	lineEnd := pos
	for lineEnd < len(source) && source[lineEnd] != '\n' {
		lineEnd++
	}
	if !closingFence.Match(source[pos:lineEnd]) {
		return 0, false
	}
	if lineEnd < len(source) {
		lineEnd++
	}
	return lineEnd, true
}
