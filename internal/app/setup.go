package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/aulago/tutoria/internal/config"
	"github.com/aulago/tutoria/internal/evidence"
	"github.com/aulago/tutoria/internal/pager"
	"github.com/aulago/tutoria/internal/session"
	"github.com/aulago/tutoria/internal/tutor"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("loading agent profile: %w", err)
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	indexes, err := provideIndexes(g, profile, logger)
	if err != nil {
		return nil, err
	}

	aggregator, err := evidence.New(indexes, profile.ContextWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("creating evidence aggregator: %w", err)
	}

	sessions, err := session.New(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	engine, err := tutor.New(ctx, tutor.Config{
		Genkit:        g,
		Profile:       profile,
		Evidence:      aggregator,
		Sessions:      sessions,
		Logger:        logger,
		ModelName:     cfg.FullModelName(),
		MaxIterations: cfg.MaxIterations,
		RateLimiter:   rate.NewLimiter(rate.Every(time.Second), 3),
	})
	if err != nil {
		return nil, fmt.Errorf("creating tutor engine: %w", err)
	}

	pg, err := pager.New(pager.NewPDFExtractor(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating document pager: %w", err)
	}

	_, cancel := context.WithCancel(ctx)
	return &App{
		Config:   cfg,
		Profile:  profile,
		Genkit:   g,
		Evidence: aggregator,
		Sessions: sessions,
		Engine:   engine,
		Pager:    pg,
		Logger:   logger,
		cancel:   cancel,
	}, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports gemini (default) and ollama.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideIndexes resolves each profile document to the retriever the
// ingestion pipeline registered for it. Documents whose retriever is not
// registered are skipped with a warning so one missing index does not take
// the tutor down.
func provideIndexes(g *genkit.Genkit, profile config.Profile, logger *slog.Logger) ([]evidence.Index, error) {
	indexes := make([]evidence.Index, 0, len(profile.Documents))
	for _, doc := range profile.Documents {
		name := doc.Retriever
		if name == "" {
			name = doc.Title
		}
		retriever := genkit.LookupRetriever(g, name)
		if retriever == nil {
			logger.Warn("no retriever registered for document, skipping",
				"title", doc.Title, "retriever", name)
			continue
		}
		idx, err := evidence.NewRetrieverIndex(doc.Title, retriever, evidence.DefaultTopK)
		if err != nil {
			return nil, fmt.Errorf("wrapping retriever %q: %w", name, err)
		}
		indexes = append(indexes, idx)
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("no document indexes available for profile %q", profile.Name)
	}
	return indexes, nil
}
