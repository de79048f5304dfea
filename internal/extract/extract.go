// Package extract adapts pre-extracted document text into ordered pages.
// Raw file parsing (PDF layout analysis, OCR) is an external concern: the
// pipeline only consumes (page number, text) pairs.
package extract

import (
	"os"
	"path/filepath"
	"strings"

	"ragchat/internal/domain"
)

// Extractor returns a document's name and its ordered per-page text.
// A failure on a single page must not abort extraction of other pages.
type Extractor interface {
	Extract(path string) (name string, pages []domain.Page, err error)
}

// FileExtractor reads text files whose pages are separated by form feeds,
// the convention used by pdftotext and similar extraction tools. A file
// without form feeds is a single-page document.
type FileExtractor struct{}

// NewFileExtractor creates an extractor for form-feed separated page text.
func NewFileExtractor() *FileExtractor { return &FileExtractor{} }

// Extract loads a document and splits it into 1-based pages.
func (e *FileExtractor) Extract(path string) (string, []domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	name := filepath.Base(path)
	raw := strings.Split(string(data), "\f")
	pages := make([]domain.Page, 0, len(raw))
	for i, text := range raw {
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return name, pages, nil
}

// Normalize cleans extracted text for indexing: non-breaking spaces become
// regular spaces, newlines are merged, and runs of whitespace collapse to a
// single space.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.Join(strings.Fields(text), " ")
}
