package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PreferenceRepository is the device-local key/value store
type PreferenceRepository struct {
	db *DB
}

// NewPreferenceRepository creates a new PreferenceRepository
func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetPreference returns the value stored under key and whether it exists
func (r *PreferenceRepository) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM local_preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores value under key, replacing any previous value
func (r *PreferenceRepository) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO local_preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// DeletePreference removes key; removing a missing key is not an error
func (r *PreferenceRepository) DeletePreference(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}
