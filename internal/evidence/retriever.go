package evidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// RetrieverIndex adapts a Genkit ai.Retriever to the Index interface.
// The underlying retriever is whatever the ingestion pipeline registered
// for the document; this adapter only translates requests and results.
type RetrieverIndex struct {
	title     string
	retriever ai.Retriever
	topK      int
}

// DefaultTopK is the per-index passage count requested from a retriever.
const DefaultTopK = 4

// NewRetrieverIndex wraps a Genkit retriever as an evidence Index.
// topK <= 0 uses DefaultTopK.
func NewRetrieverIndex(title string, retriever ai.Retriever, topK int) (*RetrieverIndex, error) {
	if title == "" {
		return nil, fmt.Errorf("index title is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required for index %q", title)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrieverIndex{title: title, retriever: retriever, topK: topK}, nil
}

// Title implements Index.
func (r *RetrieverIndex) Title() string {
	return r.title
}

// Retrieve implements Index by issuing a Genkit retriever request and
// flattening the returned documents into passages.
func (r *RetrieverIndex) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	req := &ai.RetrieverRequest{
		Query:   ai.DocumentFromText(query, nil),
		Options: map[string]any{"k": r.topK},
	}

	resp, err := r.retriever.Retrieve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", r.title, err)
	}

	passages := make([]Passage, 0, len(resp.Documents))
	for i, doc := range resp.Documents {
		passages = append(passages, Passage{
			Source: r.title,
			Text:   documentText(doc),
			Rank:   i,
		})
	}
	return passages, nil
}

// documentText extracts all text content from a Document's parts.
func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
