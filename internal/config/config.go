package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds all environment-driven settings. BaseURL and SessionSecret are
// the only hard requirements; everything else has a workable default or
// disables its feature when empty.
type Config struct {
	Port     string `env:"CENTSIBLE_PORT" envDefault:"8080" validate:"required"`
	DBPath   string `env:"CENTSIBLE_DB_PATH" envDefault:"centsible.db" validate:"required"`
	LogLevel string `env:"CENTSIBLE_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"CENTSIBLE_LOG_JSON" envDefault:"false"`

	// BaseURL is used verbatim to build magic-link callback URLs.
	BaseURL       string `env:"CENTSIBLE_BASE_URL,required" validate:"required,url"`
	SessionSecret string `env:"CENTSIBLE_SESSION_SECRET,required" validate:"required,min=32"`
	LandingPath   string `env:"CENTSIBLE_LANDING_PATH" envDefault:"/" validate:"required,startswith=/"`

	// AdminEmails gates the customer listing and content mutation routes.
	AdminEmails []string `env:"CENTSIBLE_ADMIN_EMAILS" envSeparator:","`

	PostmarkToken string `env:"CENTSIBLE_POSTMARK_TOKEN"`
	FromEmail     string `env:"CENTSIBLE_FROM_EMAIL"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	BackupBucket     string `env:"CENTSIBLE_BACKUP_BUCKET"`
	BackupEndpoint   string `env:"CENTSIBLE_BACKUP_ENDPOINT"`
	BackupRegion     string `env:"CENTSIBLE_BACKUP_REGION" envDefault:"auto"`
	BackupAccessKey  string `env:"CENTSIBLE_BACKUP_ACCESS_KEY"`
	BackupSecretKey  string `env:"CENTSIBLE_BACKUP_SECRET_KEY"`
	BackupPassphrase string `env:"CENTSIBLE_BACKUP_PASSPHRASE"`
	BackupInterval   int    `env:"CENTSIBLE_BACKUP_INTERVAL_HOURS" envDefault:"24" validate:"min=1,max=168"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// BackupEnabled reports whether enough S3 settings are present to run backups.
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != "" && c.BackupAccessKey != "" && c.BackupSecretKey != "" && c.BackupPassphrase != ""
}

// IsAdmin reports whether the given (already normalized) email may use the
// admin-only routes.
func (c *Config) IsAdmin(email string) bool {
	for _, a := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}
