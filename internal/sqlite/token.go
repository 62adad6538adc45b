package sqlite

import (
	"context"
	"fmt"
	"time"
)

// TokenRepository stores revoked access token ids
type TokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke marks a token id as revoked until it would have expired anyway
func (r *TokenRepository) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(jti) DO NOTHING
	`, jti, userID, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked
func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return count > 0, nil
}

// PurgeExpired drops revocations for tokens that expired before the cutoff
func (r *TokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
