// Package cmd wires the CLI commands. Running the binary with no
// subcommand starts an interactive tutoring chat.
package cmd

import (
	"github.com/spf13/cobra"
)

// profileFlag overrides the profile path from config or environment.
var profileFlag string

var rootCmd = &cobra.Command{
	Use:   "tutoria",
	Short: "Tutoria - a retrieval-grounded tutoring assistant for your terminal",
	Long: `Tutoria runs a tutoring conversation grounded in your course documents.

The tutor persona, teaching style, and document list come from an agent
profile file. Answers are backed by passages retrieved from the indexed
documents, and each day's conversation is saved and resumed automatically.

Running tutoria with no subcommand starts an interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "path to the agent profile file")
}
