package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Inspect and finish incomplete corpus merges",
}

var reconcileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open reconciliations",
	RunE:  runReconcileList,
}

var reconcileResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Finish every open reconciliation of the configured repository",
	RunE:  runReconcileResume,
}

func init() {
	reconcileCmd.AddCommand(reconcileListCmd, reconcileResumeCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// withMaintenanceService runs fn with a lifecycle service that has no PDF store attached.
func withMaintenanceService(cmd *cobra.Command, fn func(ctx context.Context, svc *lifecycle.Service) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	svc, err := newLifecycle(ctx, cfg, database, logger, lifecycleOptions{})
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func runReconcileList(cmd *cobra.Command, _ []string) error {
	return withMaintenanceService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
		recs, err := svc.OpenReconciliations(ctx)
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintReconciliations(recs)
		return nil
	})
}

func runReconcileResume(cmd *cobra.Command, _ []string) error {
	return withMaintenanceService(cmd, func(ctx context.Context, svc *lifecycle.Service) error {
		report, err := svc.ResumeOpen(ctx)
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintResumeResult(report.Resolved, failureLines(report))
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d reconciliations still open", len(report.Failures))
		}
		return nil
	})
}

func failureLines(report *lifecycle.ResumeReport) []string {
	lines := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		lines = append(lines, fmt.Sprintf("%s (submission %s): %s", f.ReconciliationID, f.SubmissionID, f.Error))
	}
	return lines
}
