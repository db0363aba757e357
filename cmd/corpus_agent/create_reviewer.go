package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/server"
	"github.com/happyhackingspace/kurdish-dataset/internal/types"
)

var createReviewerCmd = &cobra.Command{
	Use:   "create-reviewer",
	Short: "Create a reviewer account for the panel",
	Long:  "Creates a reviewer account. Without --password a random password is generated and printed once.",
	RunE:  runCreateReviewer,
}

var (
	createReviewerName     string
	createReviewerEmail    string
	createReviewerPassword string
)

func init() {
	createReviewerCmd.Flags().StringVar(&createReviewerName, "name", "", "Reviewer display name (required)")
	createReviewerCmd.Flags().StringVar(&createReviewerEmail, "email", "", "Reviewer login email (required)")
	createReviewerCmd.Flags().StringVar(&createReviewerPassword, "password", "", "Password (default: generated)")

	for _, name := range []string{"name", "email"} {
		if err := createReviewerCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(createReviewerCmd)
}

// generatePassword returns a URL-safe random password built from n random bytes.
func generatePassword(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func runCreateReviewer(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	generated := createReviewerPassword == ""
	password := createReviewerPassword
	if generated {
		if password, err = generatePassword(18); err != nil {
			return err
		}
	}

	req := &types.CreateReviewerRequest{
		Name:     createReviewerName,
		Email:    createReviewerEmail,
		Password: password,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid reviewer: %w", err)
	}

	pwCfg, err := config.NewPasswordConfig(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	reviewer, err := server.NewReviewerService(database, pwCfg).Create(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Created reviewer %s <%s>\n", reviewer.Name, reviewer.Email)
	fmt.Fprintf(out, "   id: %s\n", reviewer.ID)
	if generated {
		fmt.Fprintf(out, "   password: %s\n", password)
	}
	return nil
}
