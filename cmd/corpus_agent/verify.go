package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/hub"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
)

var (
	verifyStrict bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the published corpus files",
	Long:  "Downloads the metadata and text files, validates every metadata line and prints a summary.",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyStrict, "strict", false, "Exit with an error when the files are inconsistent")
	rootCmd.AddCommand(verifyCmd)
}

// downloadArtifacts fetches both corpus files concurrently. A missing file reads as empty.
func downloadArtifacts(ctx context.Context, h corpus.Hub, repoID, metadataFile, textFile string) (metadata, text []byte, err error) {
	g, gCtx := errgroup.WithContext(ctx)

	fetch := func(name string, dst *[]byte) func() error {
		return func() error {
			data, err := h.Download(gCtx, repoID, name)
			if err != nil && !errors.Is(err, hub.ErrNotFound) {
				return fmt.Errorf("failed to download %s: %w", name, err)
			}
			*dst = data
			return nil
		}
	}
	g.Go(fetch(metadataFile, &metadata))
	g.Go(fetch(textFile, &text))

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return metadata, text, nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.ValidateHub(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	metadata, text, err := downloadArtifacts(ctx, newHubClient(cfg, logger), cfg.CorpusRepoID, cfg.CorpusMetadataFile, cfg.CorpusTextFile)
	if err != nil {
		return err
	}

	summary := corpus.Summarize(metadata, text)
	observability.NewPrinter(cmd.OutOrStdout()).PrintCorpusSummary(cfg.CorpusRepoID, summary)

	if verifyStrict && !summary.Consistent() {
		return fmt.Errorf("corpus is inconsistent: %d invalid lines, %d records, %d text entries",
			len(summary.InvalidLines), summary.Records, summary.TextEntries)
	}
	return nil
}
