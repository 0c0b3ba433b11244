package pager

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page text from PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF-backed Extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract implements Extractor. Pages that cannot be decoded individually
// contribute an empty string rather than failing the whole document.
func (e *PDFExtractor) Extract(path string) (_ []string, retErr error) {
	// The pdf reader panics on some malformed files; convert to an error
	// so the pager's diagnostic path applies uniformly.
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("parsing pdf %q: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %q: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	texts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}
