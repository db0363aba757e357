// Package extraction pulls plain text out of uploaded PDF documents.
package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Placeholder replaces the text of documents that yield nothing usable.
const Placeholder = "Could not extract text from this PDF. Please type or paste the text here."

// ErrNoText is returned when a document parses but contains no text.
var ErrNoText = errors.New("pdf contains no extractable text")

// PageRangeError reports a page range that does not fit the document.
type PageRangeError struct {
	Start, End, Pages int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("invalid page range %d-%d for document with %d pages", e.Start, e.End, e.Pages)
}

// PDFExtractor extracts text with ledongthuc/pdf.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the text of every page, trimmed and joined by a blank line.
// When no page yields text the whole-document plain text is tried instead.
func (x *PDFExtractor) Extract(data []byte) (string, error) {
	return x.ExtractRange(data, 0, 0)
}

// ExtractRange is Extract limited to pages start..end, 1-indexed and inclusive.
// A zero start or end means the first or last page.
func (x *PDFExtractor) ExtractRange(data []byte, start, end int) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := r.NumPage()
	full := start == 0 && end == 0
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = pages
	}
	if start < 1 || end > pages || start > end {
		return "", &PageRangeError{Start: start, End: end, Pages: pages}
	}

	var parts []string
	for i := start; i <= end; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue // unreadable page
		}
		if t := strings.TrimSpace(pageText); t != "" {
			parts = append(parts, t)
		}
	}
	if joined := strings.Join(parts, "\n\n"); joined != "" {
		return joined, nil
	}

	if !full {
		return "", ErrNoText
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	if t := strings.TrimSpace(string(raw)); t != "" {
		return t, nil
	}
	return "", ErrNoText
}

// TextOrPlaceholder returns text, or Placeholder when err is set or text is blank.
// The boolean reports whether the placeholder was used.
func TextOrPlaceholder(text string, err error) (string, bool) {
	if err != nil || strings.TrimSpace(text) == "" {
		return Placeholder, true
	}
	return text, false
}
