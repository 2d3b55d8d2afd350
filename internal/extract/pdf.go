package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFExtractor extracts text from PDF documents via MuPDF.
type PDFExtractor struct{}

// Name implements Extractor.
func (e *PDFExtractor) Name() string { return "pdf" }

// Extract reads every page of the PDF and joins the page texts. Pages
// that fail to render are skipped; the document only fails as a whole
// when it cannot be opened or no page yields text.
func (e *PDFExtractor) Extract(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	pages := doc.NumPage()
	for i := 0; i < pages; i++ {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}

	return normalize(b.String()), nil
}
