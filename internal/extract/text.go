package extract

import (
	"fmt"
	"os"
)

// TextExtractor reads plain text files as-is.
type TextExtractor struct{}

// Name implements Extractor.
func (e *TextExtractor) Name() string { return "text" }

// Extract reads the file and normalizes line endings.
func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return normalize(string(data)), nil
}
