package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aulago/tutoria/internal/config"
	"github.com/aulago/tutoria/internal/log"
	"github.com/aulago/tutoria/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved conversation sessions",
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

// runSessions lists the active agent's sessions straight from the store.
// No model provider is needed, so it skips the full application setup.
func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if profileFlag != "" {
		cfg.ProfilePath = profileFlag
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return fmt.Errorf("loading agent profile: %w", err)
	}

	store, err := session.New(cfg.DataDir, log.New(log.Config{Level: slog.LevelWarn}))
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	keys, err := store.List(session.KeyPrefix + profile.Name + "_")
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		fmt.Fprintln(out, "No saved sessions.")
		return nil
	}
	for _, key := range keys {
		fmt.Fprintln(out, key)
	}
	return nil
}
