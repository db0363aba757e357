package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
	"github.com/happyhackingspace/kurdish-dataset/internal/server"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start the HTTP server for contributor uploads and the reviewer panel.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT)")
	rootCmd.AddCommand(serveCmd)
}

// reconcileTimeout bounds one scheduled resume run.
const reconcileTimeout = 5 * time.Minute

type resumer interface {
	ResumeOpen(ctx context.Context) (*lifecycle.ResumeReport, error)
}

// scheduleReconcile registers the periodic resume of open reconciliations on c.
func scheduleReconcile(c *cron.Cron, expr string, svc resumer, logger *zap.Logger) error {
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()

		logger.Info("Running scheduled reconciliation resume")
		report, err := svc.ResumeOpen(ctx)
		if err != nil {
			logger.Error("Scheduled reconciliation resume failed", zap.Error(err))
			return
		}
		logger.Info("Scheduled reconciliation resume completed",
			zap.Int("resolved", report.Resolved),
			zap.Int("failed", len(report.Failures)))
	})
	if err != nil {
		return fmt.Errorf("invalid RECONCILE_SCHEDULE %q: %w", expr, err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.ValidateServe(); err != nil {
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

	metrics := observability.NewMetrics()
	svc, err := newLifecycle(ctx, cfg, database, logger, lifecycleOptions{withBlobs: true, metrics: metrics})
	if err != nil {
		return err
	}

	jwtCfg, err := config.NewJWTConfig(cfg)
	if err != nil {
		return err
	}
	pwCfg, err := config.NewPasswordConfig(cfg)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigin:  cfg.AllowedOrigin,
	}, server.Dependencies{
		Lifecycle: svc,
		Reviewers: server.NewReviewerService(database, pwCfg),
		Tokens:    server.NewSessionTokens(jwtCfg),
		Health:    database,
		Metrics:   metrics,
		RateLimit: ratelimit.NewConfig(
			cfg.RateLimitEnabled,
			cfg.RateLimitDefault,
			cfg.RateLimitWindow,
			cfg.RateLimitWhitelist,
			cfg.RateLimitBlacklist,
		),
		Logger: logger.Named("http"),
	})

	if cfg.ReconcileSchedule != "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		scheduler := cron.New(cron.WithLocation(loc))
		if err := scheduleReconcile(scheduler, cfg.ReconcileSchedule, svc, logger.Named("cron")); err != nil {
			return err
		}
		scheduler.Start()
		srv.OnShutdown(func() {
			<-scheduler.Stop().Done()
		})
	}

	return srv.Start()
}
