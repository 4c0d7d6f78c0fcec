package store

import (
	"database/sql"
	"fmt"

	"github.com/centsibleapp/centsible/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	err := scanner.Scan(&b.ID, &b.ObjectKey, &b.SizeBytes, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const backupCols = `id, object_key, size_bytes, created_at`

func (s *BackupStore) Create(objectKey string, sizeBytes int64) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (object_key, size_bytes) VALUES (?, ?)`,
		objectKey, sizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	return scanBackup(row)
}

// List returns backup history, newest first.
func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// Delete removes the history record and reports whether a row was removed.
// The uploaded object itself stays in the bucket.
func (s *BackupStore) Delete(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete backup: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
