// Package ingest loads organization document libraries from disk,
// extracts and chunks their text, and syncs chunk embeddings into the
// vector store.
package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted text of a single document page.
type Page struct {
	Number int
	Text   string
}

// ExtractPDF reads the PDF at path and returns its text page by page.
// Pages that cannot be parsed are returned empty rather than failing
// the whole document.
func ExtractPDF(path string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, Page{Number: i})
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// ExtractPlainText reads a text file as a single page.
func ExtractPlainText(path string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return []Page{{Number: 1, Text: string(content)}}, nil
}

// ExtractFile dispatches on the file extension. PDFs get per-page
// extraction; .txt and .md files are read as plain text.
func ExtractFile(path string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ExtractPDF(path)
	case ".txt", ".md":
		return ExtractPlainText(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// SupportedExtension reports whether files with the given extension can
// be extracted.
func SupportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}
