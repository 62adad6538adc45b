package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/wellnest/internal/identity"
	"github.com/rpggio/wellnest/internal/repository"
)

const userColumns = `id, email, password_hash, provider, provider_subject, created_at, updated_at`

// UserRepository implements identity.UserRepository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user; a taken email or provider subject is ErrDuplicate
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Email,
		nullString(user.PasswordHash),
		user.Provider,
		nullString(user.ProviderSubject),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

// GetByProviderSubject retrieves a user linked to an external account
func (r *UserRepository) GetByProviderSubject(ctx context.Context, provider, subject string) (*identity.User, error) {
	return r.getOne(ctx, `WHERE provider = ? AND provider_subject = ?`, provider, subject)
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result)
}

func (r *UserRepository) getOne(ctx context.Context, where string, args ...any) (*identity.User, error) {
	var user identity.User
	var hash, subject sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, args...).Scan(
		&user.ID,
		&user.Email,
		&hash,
		&user.Provider,
		&subject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.PasswordHash = hash.String
	user.ProviderSubject = subject.String
	return &user, nil
}
