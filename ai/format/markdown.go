// Package format normalizes document content before it is embedded.
package format

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText strips markdown structure from source, returning the readable
// text. Knowledge-base documents may be authored in markdown; embedding the
// rendered text instead of raw markup keeps heading markers and link syntax
// out of the similarity space.
func PlainText(source string) string {
	src := []byte(source)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindListItem, ast.KindBlockquote:
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.AutoLink:
			buf.Write(v.URL(src))
		case *ast.FencedCodeBlock:
			writeLines(&buf, src, v)
		case *ast.CodeBlock:
			writeLines(&buf, src, v)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

func writeLines(buf *bytes.Buffer, src []byte, n interface{ Lines() *text.Segments }) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(src))
	}
}
