// Package evidence aggregates retrieved passages from the configured
// document indexes into a single, deduplicated, budget-bounded block of
// cited source text.
//
// The indexes themselves are external collaborators: anything implementing
// Index can contribute passages. Configuration order is priority order.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// NoEvidenceMessage is returned by Gather when no index produced a single
// passage. It doubles as a cue to the model to invite the user to rephrase.
const NoEvidenceMessage = "No specific information was found in the source documents. Suggest that the user rephrase the question."

// Passage is a retrieved snippet of source-document text with provenance.
// Produced transiently per query; never persisted.
type Passage struct {
	Source string // title of the index that produced it
	Text   string
	Rank   int // 0-based position within its index's result list
}

// Index is a searchable document index handle. Implementations wrap
// pre-built indexes produced by the ingestion pipeline.
type Index interface {
	// Title identifies the source in citations.
	Title() string
	// Retrieve returns ranked relevant passages for the query.
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}

// Aggregator merges passages across indexes under an evidence budget.
type Aggregator struct {
	indexes []Index
	budget  int
	logger  *slog.Logger
}

// New creates an Aggregator over the given indexes. budget is the maximum
// number of passage blocks a single Gather may return
// (AgentProfile.ContextWindow).
func New(indexes []Index, budget int, logger *slog.Logger) (*Aggregator, error) {
	if len(indexes) == 0 {
		return nil, errors.New("at least one index is required")
	}
	if budget < 1 {
		return nil, fmt.Errorf("evidence budget must be >= 1, got %d", budget)
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Aggregator{indexes: indexes, budget: budget, logger: logger}, nil
}

// Budget returns the maximum number of passage blocks per query.
func (a *Aggregator) Budget() int {
	return a.budget
}

// Gather queries every index in configuration order and returns a single
// formatted string: one "[Title]: text" block per passage, blank-line
// separated, at most budget blocks.
//
// A passage whose trimmed text exactly matches an already-accepted passage
// is rejected (cross-index dedup, first seen wins). A failing index
// contributes an inline diagnostic block instead of aborting the whole
// aggregation. When nothing at all was retrieved, NoEvidenceMessage is
// returned.
func (a *Aggregator) Gather(ctx context.Context, query string) string {
	var blocks []string
	seen := make(map[string]struct{})

	for _, idx := range a.indexes {
		passages, err := idx.Retrieve(ctx, query)
		if err != nil {
			a.logger.Warn("index retrieval failed",
				"source", idx.Title(),
				"error", err)
			blocks = append(blocks, fmt.Sprintf("[%s]: search error: %v", idx.Title(), err))
			continue
		}

		for _, p := range passages {
			text := strings.TrimSpace(p.Text)
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			blocks = append(blocks, fmt.Sprintf("[%s]: %s", idx.Title(), text))
		}
	}

	if len(blocks) == 0 {
		return NoEvidenceMessage
	}

	if len(blocks) > a.budget {
		blocks = blocks[:a.budget]
	}

	a.logger.Debug("evidence gathered",
		"query_length", len(query),
		"blocks", len(blocks),
		"budget", a.budget)

	return strings.Join(blocks, "\n\n")
}
