package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultLimit caps listings that do not ask for a size.
const DefaultLimit = 50

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil || entry.UserID == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists a user's activity entries, newest first.
func (s *Service) GetRecentActivity(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.UserID == "" {
		return nil, ErrInvalidInput
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// RecordHistory lists the lifecycle of one record as seen by its owner.
func (s *Service) RecordHistory(ctx context.Context, userID, recordID string) ([]ActivityEntry, error) {
	if recordID == "" {
		return nil, ErrInvalidInput
	}
	return s.GetRecentActivity(ctx, ListActivityOptions{UserID: userID, RecordID: &recordID})
}
