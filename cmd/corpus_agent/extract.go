package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/extraction"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract text from a PDF file",
	Long:  "Runs the upload extractor on a local PDF, optionally limited to a page range, and prints or saves the text.",
	RunE:  runExtract,
}

var (
	extractPDF       string
	extractStartPage int
	extractEndPage   int
	extractClean     bool
	extractOutput    string
)

func init() {
	extractCmd.Flags().StringVarP(&extractPDF, "pdf", "p", "", "Path to PDF file (required)")
	extractCmd.Flags().IntVar(&extractStartPage, "start-page", 0, "First page to extract, 1-indexed (default first page)")
	extractCmd.Flags().IntVar(&extractEndPage, "end-page", 0, "Last page to extract, inclusive (default last page)")
	extractCmd.Flags().BoolVar(&extractClean, "clean", false, "Strip symbols and put each sentence on its own line")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Path to output text file (default stdout)")

	if err := extractCmd.MarkFlagRequired("pdf"); err != nil {
		panic(fmt.Sprintf("failed to mark pdf flag as required: %v", err))
	}

	rootCmd.AddCommand(extractCmd)
}

// extractText extracts pages start..end of data. A bad page range is an error;
// any other failure yields the placeholder, reported by the boolean.
func extractText(data []byte, start, end int, clean bool) (string, bool, error) {
	text, err := extraction.NewPDFExtractor().ExtractRange(data, start, end)
	var rangeErr *extraction.PageRangeError
	if errors.As(err, &rangeErr) {
		return "", false, rangeErr
	}
	if err == nil && clean {
		text = extraction.CleanText(text)
	}
	text, placeholder := extraction.TextOrPlaceholder(text, err)
	return text, placeholder, nil
}

func runExtract(cmd *cobra.Command, _ []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	data, err := os.ReadFile(extractPDF)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PDF file not found: %s", extractPDF)
		}
		return fmt.Errorf("failed to read PDF file: %w", err)
	}

	text, placeholder, err := extractText(data, extractStartPage, extractEndPage, extractClean)
	if err != nil {
		return err
	}
	if placeholder {
		logger.Warn("No text extracted, using placeholder", zap.String("file", extractPDF))
	}

	if extractOutput == "" {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintExtraction(extractPDF, text, placeholder)
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	if err := os.WriteFile(extractOutput, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintExtraction(extractPDF, text, placeholder)
	return nil
}
