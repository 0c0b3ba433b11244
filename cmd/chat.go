package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aulago/tutoria/internal/app"
	"github.com/aulago/tutoria/internal/config"
	"github.com/aulago/tutoria/internal/log"
	"github.com/aulago/tutoria/internal/pager"
	"github.com/aulago/tutoria/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring conversation",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// setupApp loads configuration and builds the application container.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if profileFlag != "" {
		cfg.ProfilePath = profileFlag
	}

	logger := log.New(log.Config{Level: slog.LevelWarn})
	return app.Setup(ctx, cfg, logger)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, a.Engine.Greeting())
	fmt.Fprintln(out, "Type /help for commands, /exit or Ctrl+D to quit.")
	fmt.Fprintln(out)

	return repl(ctx, a, nil, os.Stdin, out)
}

// repl runs the read-ask-print loop. pages is non-nil in document mode
// and enables the /page command.
func repl(ctx context.Context, a *app.App, pages []pager.PageRecord, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")

		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleCommand(input, a, pages, out) {
				break
			}
			continue
		}

		fmt.Fprintf(out, "%s: ", a.Profile.Name)
		fmt.Fprintln(out, a.Engine.Ask(ctx, input))
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handleCommand handles slash commands, returns true if the loop should exit.
func handleCommand(input string, a *app.App, pages []pager.PageRecord, out io.Writer) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case "/help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  /help            show this help")
		fmt.Fprintln(out, "  /history         show the conversation so far")
		fmt.Fprintln(out, "  /clear           forget the conversation in memory")
		fmt.Fprintln(out, "  /save            write the conversation to disk now")
		fmt.Fprintln(out, "  /sessions        list saved sessions")
		fmt.Fprintln(out, "  /load <key>      resume a saved session")
		if pages != nil {
			fmt.Fprintln(out, "  /page <n>        show a page of the open document")
		}
		fmt.Fprintln(out, "  /exit            quit")
		fmt.Fprintln(out)

	case "/history":
		turns := a.Engine.History()
		if len(turns) == 0 {
			fmt.Fprintln(out, "No conversation yet.")
			fmt.Fprintln(out)
			return false
		}
		for _, turn := range turns {
			fmt.Fprintf(out, "[%s] %s: %s\n",
				turn.Timestamp.Format("15:04:05"), turn.Role, turn.Content)
		}
		fmt.Fprintln(out)

	case "/clear":
		a.Engine.Clear()
		fmt.Fprintln(out, "Conversation cleared.")
		fmt.Fprintln(out)

	case "/save":
		if err := a.Engine.Save(); err != nil {
			fmt.Fprintf(out, "Save failed: %v\n\n", err)
			return false
		}
		fmt.Fprintf(out, "Saved session %s.\n\n", a.Engine.SessionKey())

	case "/sessions":
		// Only this agent's daily buckets; other agents' sessions are
		// invisible here.
		keys, err := a.Sessions.List(session.KeyPrefix + a.Profile.Name + "_")
		if err != nil {
			fmt.Fprintf(out, "Listing sessions failed: %v\n\n", err)
			return false
		}
		if len(keys) == 0 {
			fmt.Fprintln(out, "No saved sessions.")
			fmt.Fprintln(out)
			return false
		}
		for _, key := range keys {
			marker := " "
			if key == a.Engine.SessionKey() {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, key)
		}
		fmt.Fprintln(out)

	case "/load":
		if len(parts) < 2 {
			fmt.Fprintln(out, "Usage: /load <key>")
			fmt.Fprintln(out)
			return false
		}
		if err := a.Engine.LoadSession(parts[1]); err != nil {
			fmt.Fprintf(out, "Load failed: %v\n\n", err)
			return false
		}
		fmt.Fprintf(out, "Resumed session %s (%d turns).\n\n",
			parts[1], len(a.Engine.History()))

	case "/page":
		if pages == nil {
			fmt.Fprintln(out, "No document open. Use the document command to open one.")
			fmt.Fprintln(out)
			return false
		}
		if len(parts) < 2 {
			fmt.Fprintln(out, "Usage: /page <n>")
			fmt.Fprintln(out)
			return false
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 || n > len(pages) {
			fmt.Fprintf(out, "Page must be between 1 and %d.\n\n", len(pages))
			return false
		}
		record := pager.Page(pages, n-1)
		fmt.Fprintf(out, "--- page %d ---\n%s\n\n", record.Number, record.Content)

	case "/exit", "/quit":
		fmt.Fprintln(out, "Goodbye!")
		return true

	default:
		fmt.Fprintf(out, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(out, "Type /help to see available commands.")
		fmt.Fprintln(out)
	}

	return false
}
