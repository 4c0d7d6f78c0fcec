package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/centsibleapp/centsible/internal/database"
	"github.com/centsibleapp/centsible/internal/store"
)

type fakeS3 struct {
	keys    []string
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.keys = append(f.keys, *input.Key)
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestRunOnce(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backupStore := store.NewBackupStore(db)
	fake := &fakeS3{}
	m := &Manager{
		cfg: Config{
			Bucket:     "backups",
			Passphrase: "test-passphrase",
			Interval:   time.Hour,
		},
		db:     db,
		store:  backupStore,
		client: fake,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if len(fake.keys) != 1 {
		t.Fatalf("uploads = %d, want 1", len(fake.keys))
	}
	key := fake.keys[0]
	if !strings.HasPrefix(key, "centsible/") || !strings.HasSuffix(key, ".db.enc") {
		t.Errorf("key = %q", key)
	}

	// The uploaded object decrypts back to a SQLite file.
	plaintext, err := Decrypt(fake.objects[key], "test-passphrase")
	if err != nil {
		t.Fatalf("decrypt upload: %v", err)
	}
	if !bytes.HasPrefix(plaintext, []byte("SQLite format 3")) {
		t.Error("snapshot is not a SQLite database")
	}

	// The run is recorded.
	records, err := backupStore.List(10)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].ObjectKey != key {
		t.Errorf("recorded key = %q, want %q", records[0].ObjectKey, key)
	}
	if records[0].SizeBytes != int64(len(fake.objects[key])) {
		t.Errorf("recorded size = %d, want %d", records[0].SizeBytes, len(fake.objects[key]))
	}
}
