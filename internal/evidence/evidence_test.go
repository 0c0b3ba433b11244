package evidence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aulago/tutoria/internal/log"
)

// stubIndex is a canned-response Index for aggregator tests.
type stubIndex struct {
	title    string
	passages []string
	err      error
	calls    int
}

func (s *stubIndex) Title() string { return s.title }

func (s *stubIndex) Retrieve(_ context.Context, _ string) ([]Passage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Passage, len(s.passages))
	for i, text := range s.passages {
		out[i] = Passage{Source: s.title, Text: text, Rank: i}
	}
	return out, nil
}

func newAggregator(t *testing.T, budget int, indexes ...Index) *Aggregator {
	t.Helper()
	a, err := New(indexes, budget, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	idx := &stubIndex{title: "Doc"}

	if _, err := New(nil, 3, log.NewNop()); err == nil {
		t.Error("New() with no indexes: expected error, got nil")
	}
	if _, err := New([]Index{idx}, 0, log.NewNop()); err == nil {
		t.Error("New() with zero budget: expected error, got nil")
	}
	if _, err := New([]Index{idx}, 3, nil); err == nil {
		t.Error("New() with nil logger: expected error, got nil")
	}
}

func TestGather_FormatsBlocksWithSourceTitles(t *testing.T) {
	t.Parallel()

	a := newAggregator(t, 5,
		&stubIndex{title: "Biology 101", passages: []string{"cells divide by mitosis"}},
		&stubIndex{title: "Lab Manual", passages: []string{"use a clean slide"}},
	)

	got := a.Gather(context.Background(), "mitosis")
	want := "[Biology 101]: cells divide by mitosis\n\n[Lab Manual]: use a clean slide"
	if got != want {
		t.Errorf("Gather() = %q, want %q", got, want)
	}
}

func TestGather_DeduplicatesAcrossIndexes(t *testing.T) {
	t.Parallel()

	// Identical trimmed text must appear exactly once, first occurrence
	// in index-then-rank order winning.
	a := newAggregator(t, 10,
		&stubIndex{title: "First", passages: []string{"shared passage", "unique one"}},
		&stubIndex{title: "Second", passages: []string{"  shared passage  ", "unique two"}},
	)

	got := a.Gather(context.Background(), "q")

	if n := strings.Count(got, "shared passage"); n != 1 {
		t.Errorf("Gather() contains %d copies of duplicated text, want 1\noutput: %s", n, got)
	}
	if !strings.Contains(got, "[First]: shared passage") {
		t.Errorf("Gather() dedup kept the wrong source:\n%s", got)
	}
	if !strings.Contains(got, "unique one") || !strings.Contains(got, "unique two") {
		t.Errorf("Gather() dropped distinct passages:\n%s", got)
	}
}

func TestGather_BudgetScenario(t *testing.T) {
	t.Parallel()

	// Budget 2 with three indexes producing
	// ["A","A","B","C"] after trim, expect exactly ["A","B"].
	a := newAggregator(t, 2,
		&stubIndex{title: "I1", passages: []string{"A"}},
		&stubIndex{title: "I2", passages: []string{"A ", "B"}},
		&stubIndex{title: "I3", passages: []string{"C"}},
	)

	got := a.Gather(context.Background(), "q")
	want := "[I1]: A\n\n[I2]: B"
	if got != want {
		t.Errorf("Gather() = %q, want %q", got, want)
	}
}

func TestGather_NeverExceedsBudget(t *testing.T) {
	t.Parallel()

	a := newAggregator(t, 3,
		&stubIndex{title: "Big", passages: []string{"p1", "p2", "p3", "p4", "p5"}},
	)

	got := a.Gather(context.Background(), "q")
	if blocks := strings.Split(got, "\n\n"); len(blocks) != 3 {
		t.Errorf("Gather() produced %d blocks, want 3", len(blocks))
	}
}

func TestGather_NoEvidenceSentinel(t *testing.T) {
	t.Parallel()

	a := newAggregator(t, 3,
		&stubIndex{title: "Empty"},
		&stubIndex{title: "Blank", passages: []string{"   "}},
	)

	got := a.Gather(context.Background(), "anything")
	if got != NoEvidenceMessage {
		t.Errorf("Gather() = %q, want NoEvidenceMessage", got)
	}
}

func TestGather_FailingIndexIsolated(t *testing.T) {
	t.Parallel()

	// A single failing source must never block the answer: its block is
	// replaced by an inline diagnostic and the other indexes contribute.
	a := newAggregator(t, 5,
		&stubIndex{title: "Broken", err: errors.New("index offline")},
		&stubIndex{title: "Healthy", passages: []string{"still works"}},
	)

	got := a.Gather(context.Background(), "q")
	if !strings.Contains(got, "[Broken]: search error: index offline") {
		t.Errorf("Gather() missing diagnostic block:\n%s", got)
	}
	if !strings.Contains(got, "[Healthy]: still works") {
		t.Errorf("Gather() lost healthy index contribution:\n%s", got)
	}
}

func TestGather_AllIndexesQueried(t *testing.T) {
	t.Parallel()

	i1 := &stubIndex{title: "One", passages: []string{"a"}}
	i2 := &stubIndex{title: "Two", passages: []string{"b"}}
	a := newAggregator(t, 5, i1, i2)

	a.Gather(context.Background(), "q")
	a.Gather(context.Background(), "q")

	if i1.calls != 2 || i2.calls != 2 {
		t.Errorf("index call counts = (%d, %d), want (2, 2)", i1.calls, i2.calls)
	}
}
