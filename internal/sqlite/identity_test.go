package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/identity"
	"github.com/rpggio/wellnest/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	user := &identity.User{
		ID:           "u1",
		Email:        "maya@example.com",
		PasswordHash: "hash",
		Provider:     identity.ProviderEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, user))
	require.ErrorIs(t, repo.Create(ctx, &identity.User{ID: "u2", Email: "maya@example.com", Provider: identity.ProviderEmail, CreatedAt: now, UpdatedAt: now}), repository.ErrDuplicate)

	byEmail, err := repo.GetByEmail(ctx, "maya@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", byEmail.ID)
	require.Equal(t, "hash", byEmail.PasswordHash)
	require.Empty(t, byEmail.ProviderSubject)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, "u1", "hash2", now.Add(time.Second)))
	byID, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "hash2", byID.PasswordHash)
	require.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x", now), repository.ErrNotFound)
}

func TestUserRepository_ProviderSubject(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &identity.User{ID: "g1", Email: "g@example.com", Provider: "google", ProviderSubject: "sub-1", CreatedAt: now, UpdatedAt: now}))
	// Password users share a NULL subject without tripping the unique index.
	require.NoError(t, repo.Create(ctx, &identity.User{ID: "e1", Email: "e1@example.com", Provider: identity.ProviderEmail, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, repo.Create(ctx, &identity.User{ID: "e2", Email: "e2@example.com", Provider: identity.ProviderEmail, CreatedAt: now, UpdatedAt: now}))

	user, err := repo.GetByProviderSubject(ctx, "google", "sub-1")
	require.NoError(t, err)
	require.Equal(t, "g1", user.ID)
	require.Empty(t, user.PasswordHash)
}

func TestTokenRepository(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTokenRepository(db)
	now := time.Now().UTC()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", "u1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-1", "u1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-old", "u1", now.Add(-time.Hour)))

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

func TestPreferenceRepository(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewPreferenceRepository(db)

	_, ok, err := repo.GetPreference(ctx, "remember")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.SetPreference(ctx, "remember", "true"))
	require.NoError(t, repo.SetPreference(ctx, "remember", "false"))
	value, ok, err := repo.GetPreference(ctx, "remember")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "false", value)

	require.NoError(t, repo.DeletePreference(ctx, "remember"))
	require.NoError(t, repo.DeletePreference(ctx, "remember"))
	_, ok, err = repo.GetPreference(ctx, "remember")
	require.NoError(t, err)
	require.False(t, ok)
}
