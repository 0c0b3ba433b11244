// Package pager extracts per-page text from source documents for the
// synchronized document-view mode.
//
// Extraction runs once per path per session; results are cached for the
// session's lifetime and immutable after creation. An unreadable document
// yields an empty page sequence plus a diagnostic error for the caller to
// display, never a panic.
package pager

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// PreviewRunes is the preview length; longer content is truncated with an
// ellipsis marker.
const PreviewRunes = 100

// PageRecord holds one page's extracted text. Immutable after creation.
type PageRecord struct {
	// Number is the 1-based page number.
	Number int
	// Content is the page's trimmed plain text.
	Content string
	// Preview is the first ~100 characters of Content.
	Preview string
}

// Extractor opens a source document and yields its page texts in order.
// Implementations wrap a concrete document reader; see PDFExtractor.
type Extractor interface {
	Extract(path string) ([]string, error)
}

// Pager caches extracted pages per document path for the active session.
//
// Note: The zero value is NOT useful - use New() to create instances.
type Pager struct {
	extractor Extractor
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string][]PageRecord
}

// New creates a Pager over the given extractor.
func New(extractor Extractor, logger *slog.Logger) (*Pager, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Pager{
		extractor: extractor,
		logger:    logger,
		cache:     make(map[string][]PageRecord),
	}, nil
}

// Pages returns the ordered page records for path, extracting on first use
// and serving the session cache afterwards. On extraction failure it
// returns an empty sequence together with the diagnostic error; the caller
// displays the diagnostic instead of aborting.
func (p *Pager) Pages(path string) ([]PageRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if records, ok := p.cache[path]; ok {
		return records, nil
	}

	texts, err := p.extractor.Extract(path)
	if err != nil {
		p.logger.Warn("document extraction failed", "path", path, "error", err)
		return []PageRecord{}, fmt.Errorf("extracting %q: %w", path, err)
	}

	records := make([]PageRecord, len(texts))
	for i, text := range texts {
		content := strings.TrimSpace(text)
		records[i] = PageRecord{
			Number:  i + 1,
			Content: content,
			Preview: preview(content),
		}
	}

	p.cache[path] = records
	p.logger.Debug("document extracted", "path", path, "pages", len(records))
	return records, nil
}

// Page returns the record at the 0-based position. The index is always
// bounded by the page list handed to the selector; an out-of-range index
// is a caller bug and panics like any slice misuse.
func Page(records []PageRecord, index int) PageRecord {
	return records[index]
}

// preview truncates content to PreviewRunes runes, appending an ellipsis
// marker when content is longer.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewRunes {
		return content
	}
	return string(runes[:PreviewRunes]) + "..."
}
