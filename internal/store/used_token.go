package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UsedTokenStore tracks claimed magic-link token ids so a link is single-use
// even though token verification itself is stateless.
type UsedTokenStore struct {
	db *sql.DB
}

func NewUsedTokenStore(db *sql.DB) *UsedTokenStore {
	return &UsedTokenStore{db: db}
}

// Claim records the jti and reports whether this call was the first to do so.
// The insert is atomic, so concurrent verifications of the same link cannot
// both succeed.
func (s *UsedTokenStore) Claim(jti, email string, expiresAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO used_tokens (jti, email, expires_at) VALUES (?, ?, ?)`,
		jti, email, expiresAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("claim token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired drops rows whose underlying token can no longer verify anyway.
func (s *UsedTokenStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM used_tokens WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
