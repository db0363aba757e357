// Package main provides the corpus_agent CLI: the submission API server and the corpus maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "corpus_agent",
	Short: "Kurmanji corpus submission service",
	Long: "corpus_agent runs the HTTP API where contributors upload Kurmanji PDF texts and reviewers accept them " +
		"into the public dataset, plus commands to migrate, inspect and repair the corpus.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
