// Package extract turns input documents into plain text for synthesis.
// PDF parsing and markdown parsing are delegated to external libraries;
// this package only selects the extractor and normalizes the result.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

var (
	// ErrNoText is returned when a document yields no synthesizable text.
	ErrNoText = errors.New("document contains no extractable text")

	// ErrUnsupportedType is returned for file types with no extractor.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// Extractor converts a document file into plain text.
type Extractor interface {
	// Extract reads the document at path and returns its plain text.
	Extract(path string) (string, error)

	// Name identifies the extractor in logs and errors.
	Name() string
}

// ForFile returns the extractor responsible for path based on its
// extension. Files with no recognized extension are treated as plain
// text.
func ForFile(path string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".txt", ".text", "":
		return &TextExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// Supported reports whether path has an extractor.
func Supported(path string) bool {
	_, err := ForFile(path)
	return err == nil
}

// Text extracts plain text from the document at path using the
// extension-matched extractor.
func Text(path string) (string, error) {
	ex, err := ForFile(path)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(path)
	if err != nil {
		return "", fmt.Errorf("%s extraction failed: %w", ex.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// FindDocuments walks root and returns every document beneath it, in
// lexical order. Hidden directories are skipped. Extensionless files
// are ignored even though ForFile would read them as plain text;
// scanning a directory should not sweep up binaries and the like.
func FindDocuments(root string) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != "" && Supported(path) {
			docs = append(docs, path)
		}
		return nil
	})
	return docs, err
}

// normalize strips a UTF-8 BOM and unifies line endings.
func normalize(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
