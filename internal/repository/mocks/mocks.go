package mocks

import (
	"context"
	"time"

	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/identity"
	"github.com/stretchr/testify/mock"
)

// RecordRepository is a mock for record.RecordRepository.
type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Create(ctx context.Context, rec *record.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *RecordRepository) Get(ctx context.Context, viewerID, id string) (*record.Record, error) {
	args := m.Called(ctx, viewerID, id)
	if rec, ok := args.Get(0).(*record.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecordRepository) Update(ctx context.Context, ownerID string, rec *record.Record) error {
	args := m.Called(ctx, ownerID, rec)
	return args.Error(0)
}

func (m *RecordRepository) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *RecordRepository) List(ctx context.Context, opts record.ListOptions) ([]record.Record, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]record.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for identity.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByProviderSubject(ctx context.Context, provider, subject string) (*identity.User, error) {
	args := m.Called(ctx, provider, subject)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, updatedAt)
	return args.Error(0)
}

// TokenRepository is a mock for identity.TokenRepository.
type TokenRepository struct {
	mock.Mock
}

func (m *TokenRepository) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	args := m.Called(ctx, jti, userID, expiresAt)
	return args.Error(0)
}

func (m *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *TokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// PreferenceStore is a mock for the device-local preference store.
type PreferenceStore struct {
	mock.Mock
}

func (m *PreferenceStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *PreferenceStore) SetPreference(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *PreferenceStore) DeletePreference(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
