package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/hub"
)

var (
	initDatasetPublic bool
)

var initDatasetCmd = &cobra.Command{
	Use:   "init-dataset",
	Short: "Create the dataset repository and seed empty corpus files",
	Long: "Creates CORPUS_REPO_ID on the hub (private unless --public) and uploads empty metadata and text " +
		"files where they do not exist yet. Existing files are never overwritten.",
	RunE: runInitDataset,
}

func init() {
	initDatasetCmd.Flags().BoolVar(&initDatasetPublic, "public", false, "Create the repository as public")
	rootCmd.AddCommand(initDatasetCmd)
}

// seedArtifacts uploads an empty file for every name in files that the repository lacks.
// It returns the names it created.
func seedArtifacts(ctx context.Context, h corpus.Hub, repoID string, files []string) ([]string, error) {
	var seeded []string
	for _, name := range files {
		_, err := h.Download(ctx, repoID, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, hub.ErrNotFound) {
			return seeded, fmt.Errorf("failed to check %s: %w", name, err)
		}
		if err := h.Upload(ctx, repoID, name, []byte{}, "Initialize "+name); err != nil {
			return seeded, fmt.Errorf("failed to seed %s: %w", name, err)
		}
		seeded = append(seeded, name)
	}
	return seeded, nil
}

func runInitDataset(cmd *cobra.Command, _ []string) error {
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
	client := newHubClient(cfg, logger)
	out := cmd.OutOrStdout()

	created, err := client.CreateRepo(ctx, cfg.CorpusRepoID, !initDatasetPublic)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "✅ Created dataset %s\n", cfg.CorpusRepoID)
	} else {
		fmt.Fprintf(out, "Dataset %s already exists\n", cfg.CorpusRepoID)
	}

	seeded, err := seedArtifacts(ctx, client, cfg.CorpusRepoID, []string{cfg.CorpusMetadataFile, cfg.CorpusTextFile})
	for _, name := range seeded {
		fmt.Fprintf(out, "✅ Seeded empty %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(seeded) == 0 {
		fmt.Fprintln(out, "Corpus files already present, nothing to seed")
	}
	return nil
}
