package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/aulago/tutoria/internal/config"
	"github.com/aulago/tutoria/internal/log"
)

func writeProfileFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	doc := `name: Tutor
role: biology teacher
context_window: 5
documents:
  - title: Biology 101
    path: docs/bio.pdf
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("writing profile fixture: %v", err)
	}
	return path
}

func TestSetup_NilArguments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := Setup(ctx, nil, log.NewNop()); err == nil {
		t.Error("Setup() with nil config: expected error, got nil")
	}
	if _, err := Setup(ctx, &config.Config{}, nil); err == nil {
		t.Error("Setup() with nil logger: expected error, got nil")
	}
}

func TestSetup_MissingProfile(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Provider:      config.ProviderGemini,
		ModelName:     "gemini-2.5-flash",
		MaxIterations: 3,
		DataDir:       t.TempDir(),
	}

	_, err := Setup(context.Background(), cfg, log.NewNop())
	if !errors.Is(err, config.ErrMissingProfile) {
		t.Errorf("Setup() error = %v, want ErrMissingProfile", err)
	}
}

// The loaded profile flows by value from LoadProfile into index
// resolution; a profile whose documents have no registered retriever must
// yield a setup error rather than an empty aggregator.
func TestProvideIndexes_NoRegisteredRetriever(t *testing.T) {
	t.Parallel()

	profile, err := config.LoadProfile(writeProfileFixture(t))
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}

	g := genkit.Init(context.Background())
	if _, err := provideIndexes(g, profile, log.NewNop()); err == nil ||
		!strings.Contains(err.Error(), "no document indexes") {
		t.Errorf("provideIndexes() error = %v, want no-indexes error", err)
	}
}
