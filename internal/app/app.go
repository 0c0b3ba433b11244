// Package app provides application initialization and dependency injection.
//
// App is the container that wires the configured provider, the document
// indexes, the session store, and the tutoring engine together. cmd
// consumes it; nothing below this package imports it.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"

	"github.com/aulago/tutoria/internal/config"
	"github.com/aulago/tutoria/internal/evidence"
	"github.com/aulago/tutoria/internal/pager"
	"github.com/aulago/tutoria/internal/session"
	"github.com/aulago/tutoria/internal/tutor"
)

// App is the core application container.
type App struct {
	Config  *config.Config
	Profile config.Profile

	Genkit   *genkit.Genkit
	Evidence *evidence.Aggregator
	Sessions *session.Store
	Engine   *tutor.Engine
	Pager    *pager.Pager
	Logger   *slog.Logger

	cancel context.CancelFunc
}

// Close gracefully shuts down the application.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}
