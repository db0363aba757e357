package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/extraction"
	"github.com/happyhackingspace/kurdish-dataset/internal/hub"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
	"github.com/happyhackingspace/kurdish-dataset/internal/storage"
)

// loadConfig reads the environment and builds the process logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return database, nil
}

func newHubClient(cfg *config.Config, logger *zap.Logger) *hub.Client {
	return hub.NewClient(hub.Config{
		Endpoint:   cfg.HubEndpoint,
		Token:      cfg.HubToken,
		Revision:   cfg.CorpusRevision,
		Attempts:   cfg.HubRetryAttempts,
		RetryDelay: cfg.HubRetryDelay,
		Timeout:    cfg.HubTimeout,
	}, logger.Named("hub"))
}

// newEngine builds the merge engine. Writes are serialized with every other process
// sharing the database through advisory locks.
func newEngine(cfg *config.Config, h corpus.Hub, database *db.DB, logger *zap.Logger) (*corpus.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return corpus.NewEngine(h, corpus.Options{
		RepoID:       cfg.CorpusRepoID,
		MetadataFile: cfg.CorpusMetadataFile,
		TextFile:     cfg.CorpusTextFile,
		Location:     loc,
		Locker:       db.NewAdvisoryLocker(database),
		Ledger:       database,
		Logger:       logger.Named("corpus"),
	}), nil
}

func loadTextTypes(cfg *config.Config) (*config.TextTypes, error) {
	if cfg.TextTypesFile == "" {
		return config.DefaultTextTypes(), nil
	}
	return config.LoadTextTypes(cfg.TextTypesFile)
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		CacheControl:  cfg.S3CacheControl,
		PublicBaseURL: cfg.S3PublicBaseURL,
		URLExpiry:     cfg.S3URLExpiry,
	}
}

type lifecycleOptions struct {
	// withBlobs connects the PDF store; maintenance commands never touch it.
	withBlobs bool
	metrics   *observability.Metrics
}

// newLifecycle wires the submission service around database and the dataset hub.
func newLifecycle(ctx context.Context, cfg *config.Config, database *db.DB, logger *zap.Logger, opts lifecycleOptions) (*lifecycle.Service, error) {
	if err := cfg.ValidateHub(); err != nil {
		return nil, err
	}
	engine, err := newEngine(cfg, newHubClient(cfg, logger), database, logger)
	if err != nil {
		return nil, err
	}
	textTypes, err := loadTextTypes(cfg)
	if err != nil {
		return nil, err
	}

	deps := lifecycle.Deps{
		Store:           database,
		Reconciliations: database,
		Extractor:       extraction.NewPDFExtractor(),
		Merger:          engine,
		TextTypes:       textTypes,
		KeyPrefix:       cfg.S3Prefix,
		Metrics:         opts.metrics,
		Logger:          logger.Named("lifecycle"),
	}
	if opts.withBlobs {
		if err := cfg.ValidateStorage(); err != nil {
			return nil, err
		}
		sc := storageConfig(cfg)
		client, err := storage.NewS3Client(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		deps.Blobs = storage.NewS3Store(client, sc, logger.Named("storage"))
	}
	return lifecycle.NewService(deps), nil
}
