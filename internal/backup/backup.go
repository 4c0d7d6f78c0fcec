// Package backup uploads encrypted snapshots of the SQLite database to
// S3-compatible storage on a fixed interval.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/centsibleapp/centsible/internal/store"
)

// s3Client is the subset of the S3 API the manager uses, kept narrow for tests.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds backup settings. Snapshots run every Interval; Passphrase
// protects them at rest.
type Config struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Passphrase string
	DBPath     string
	Interval   time.Duration
}

// Manager runs the scheduled snapshot loop.
type Manager struct {
	cfg    Config
	db     *sql.DB
	store  *store.BackupStore
	client s3Client
	logger *slog.Logger
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		db:     db,
		store:  bs,
		logger: logger,
	}
	m.client = newS3Client(cfg)
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Run executes snapshots on the configured interval until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunOnce(ctx); err != nil {
				m.logger.Error("scheduled backup failed", "error", err)
			}
		}
	}
}

// RunOnce takes one snapshot, encrypts it, and uploads it.
func (m *Manager) RunOnce(ctx context.Context) error {
	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return err
	}

	sealed, err := Encrypt(snapshot, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("centsible/%s.db.enc", time.Now().UTC().Format("2006-01-02T15-04-05"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(sealed),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	if _, err := m.store.Create(key, int64(len(sealed))); err != nil {
		return err
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed))
	return nil
}

// snapshot produces a consistent copy of the database via VACUUM INTO,
// which works while WAL writers are active.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "centsible-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, tmpPath); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
