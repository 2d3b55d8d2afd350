package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor extracts readable prose from markdown documents.
// Formatting is discarded, link text is kept, and code blocks are
// skipped entirely since reading source code aloud is useless.
type MarkdownExtractor struct{}

// Name implements Extractor.
func (e *MarkdownExtractor) Name() string { return "markdown" }

// Extract parses the markdown AST and collects text nodes.
func (e *MarkdownExtractor) Extract(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown file: %w", err)
	}
	return StripMarkdown(src), nil
}

// StripMarkdown converts markdown source to plain text via the goldmark
// AST. Block boundaries become paragraph breaks so that sentence
// splitting still sees headings and list items as separate units.
func StripMarkdown(src []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.HardLineBreak() || node.SoftLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.CodeSpan:
			// Inline code is dropped like the surrounding formatting.
			return ast.WalkSkipChildren, nil
		default:
			if !entering && n.Type() == ast.TypeBlock {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return normalize(b.String())
}
