package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aulago/tutoria/internal/config"
)

var documentCmd = &cobra.Command{
	Use:   "document [title or number]",
	Short: "Chat alongside one of the profile's documents",
	Long: `Opens one of the profile's documents page by page next to the chat.

With no argument the profile's documents are listed and the first one is
opened. Inside the chat, /page <n> shows a page in full.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocument,
}

func init() {
	rootCmd.AddCommand(documentCmd)
}

func runDocument(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()

	doc, err := selectDocument(a.Profile.Documents, args)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Opening %q...\n", doc.Title)
	pages, err := a.Pager.Pages(doc.Path)
	if err != nil {
		// The document stays unreadable for this session but the chat
		// still works.
		fmt.Fprintf(out, "Could not read the document: %v\n", err)
	}

	for _, record := range pages {
		fmt.Fprintf(out, "  page %d: %s\n", record.Number, record.Preview)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, a.Engine.Greeting())
	fmt.Fprintln(out, "Type /page <n> to read a page, /help for commands.")
	fmt.Fprintln(out)

	return repl(ctx, a, pages, os.Stdin, out)
}

// selectDocument resolves the argument to a profile document. Accepts a
// 1-based number or a case-insensitive title; no argument means the first
// document.
func selectDocument(docs []config.DocumentRef, args []string) (config.DocumentRef, error) {
	if len(args) == 0 {
		return docs[0], nil
	}
	arg := args[0]

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(docs) {
			return config.DocumentRef{}, fmt.Errorf("document number must be between 1 and %d", len(docs))
		}
		return docs[n-1], nil
	}

	for _, doc := range docs {
		if strings.EqualFold(doc.Title, arg) {
			return doc, nil
		}
	}
	return config.DocumentRef{}, fmt.Errorf("no document titled %q in the profile", arg)
}
