package pdfext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText means the document produced no usable text.
var ErrNoText = errors.New("no text extracted from document")

// TextExtractor extracts plain text from a stored document, optionally capped
// to the first pageLimit pages for latency control.
type TextExtractor interface {
	ExtractText(filePath string, pageLimit int) (string, error)
}

// PDFExtractor reads text page by page from a PDF file.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) ExtractText(filePath string, pageLimit int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	if pageLimit > 0 && pageLimit < numPages {
		numPages = pageLimit
	}

	var parts []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the whole document
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	joined := strings.Join(parts, "\n\n")
	if strings.TrimSpace(joined) == "" {
		return "", ErrNoText
	}
	return joined, nil
}
