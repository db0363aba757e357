// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from environment variables.
// Commands validate only the subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        int    `envconfig:"PORT" default:"8080"`
	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	JWTSecret          string `envconfig:"JWT_SECRET"`
	JWTExpirationHours int    `envconfig:"JWT_EXPIRATION_HOURS" default:"24"`
	BcryptCost         int    `envconfig:"BCRYPT_COST" default:"12"`
	PasswordPepper     string `envconfig:"PASSWORD_PEPPER"`

	HubEndpoint      string        `envconfig:"HF_ENDPOINT" default:"https://huggingface.co"`
	HubToken         string        `envconfig:"HUGGINGFACE_TOKEN"`
	HubRetryAttempts uint          `envconfig:"HUB_RETRY_ATTEMPTS" default:"3"`
	HubRetryDelay    time.Duration `envconfig:"HUB_RETRY_DELAY" default:"500ms"`
	HubTimeout       time.Duration `envconfig:"HUB_TIMEOUT" default:"30s"`

	CorpusRepoID       string `envconfig:"CORPUS_REPO_ID" default:"happyhackingspace/kurdish-kurmanji-corpus"`
	CorpusRevision     string `envconfig:"CORPUS_REVISION" default:"main"`
	CorpusMetadataFile string `envconfig:"CORPUS_METADATA_FILE" default:"kurmanji.json"`
	CorpusTextFile     string `envconfig:"CORPUS_TEXT_FILE" default:"kurmanji.txt"`
	CorpusTimezone     string `envconfig:"CORPUS_TIMEZONE" default:"Europe/Istanbul"`

	S3Endpoint      string        `envconfig:"S3_ENDPOINT"`
	S3Region        string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey     string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string        `envconfig:"S3_SECRET_KEY"`
	S3Bucket        string        `envconfig:"S3_BUCKET" default:"data_files"`
	S3Prefix        string        `envconfig:"S3_PREFIX" default:"pdfs"`
	S3CacheControl  string        `envconfig:"S3_CACHE_CONTROL" default:"max-age=3600"`
	S3PublicBaseURL string        `envconfig:"S3_PUBLIC_BASE_URL"`
	S3URLExpiry     time.Duration `envconfig:"S3_URL_EXPIRY" default:"1h"`

	MaxUploadMB   int64  `envconfig:"MAX_UPLOAD_MB" default:"20"`
	TextTypesFile string `envconfig:"TEXT_TYPES_FILE"`

	// Cron expression for resuming open reconciliations; empty disables the job.
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE"`

	RateLimitEnabled   bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitDefault   int           `envconfig:"RATE_LIMIT_DEFAULT_LIMIT" default:"300"`
	RateLimitWindow    time.Duration `envconfig:"RATE_LIMIT_DEFAULT_WINDOW" default:"1m"`
	RateLimitWhitelist []string      `envconfig:"RATE_LIMIT_WHITELIST"`
	RateLimitBlacklist []string      `envconfig:"RATE_LIMIT_BLACKLIST"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &c, nil
}

// IsDevelopment reports whether the service runs in a local development setup.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development") || strings.EqualFold(c.Environment, "dev")
}

// Location resolves CorpusTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CorpusTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CORPUS_TIMEZONE %q: %w", c.CorpusTimezone, err)
	}
	return loc, nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// ValidateDatabase checks the settings needed to open the record store.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return nil
}

// ValidateHub checks the settings needed to talk to the dataset hub.
func (c *Config) ValidateHub() error {
	if c.HubToken == "" {
		return fmt.Errorf("HUGGINGFACE_TOKEN environment variable is required")
	}
	if c.CorpusRepoID == "" || !strings.Contains(c.CorpusRepoID, "/") {
		return fmt.Errorf("CORPUS_REPO_ID must look like <namespace>/<name>, got %q", c.CorpusRepoID)
	}
	if c.CorpusMetadataFile == "" || c.CorpusTextFile == "" {
		return fmt.Errorf("CORPUS_METADATA_FILE and CORPUS_TEXT_FILE cannot be empty")
	}
	if c.HubRetryAttempts < 1 {
		return fmt.Errorf("HUB_RETRY_ATTEMPTS must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateStorage checks the settings needed for the PDF blob store.
func (c *Config) ValidateStorage() error {
	if c.S3Endpoint == "" {
		return fmt.Errorf("S3_ENDPOINT environment variable is required")
	}
	if c.S3AccessKey == "" || c.S3SecretKey == "" {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET cannot be empty")
	}
	return nil
}

// ValidateServe checks everything the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	for _, check := range []func() error{c.ValidateDatabase, c.ValidateHub, c.ValidateStorage} {
		if err := check(); err != nil {
			return err
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	return nil
}
