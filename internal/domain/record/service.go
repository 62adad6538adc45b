package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/rpggio/wellnest/internal/repository"
)

// Service is the typed façade over the session record store.
type Service struct {
	records    RecordRepository
	activities ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new record service.
func NewService(records RecordRepository, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		records:    records,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListPublished returns every published record, newest first. Visible to guests.
func (s *Service) ListPublished(ctx context.Context) ([]Record, error) {
	recs, err := s.records.List(ctx, ListOptions{Status: StatusPublished, OrderBy: OrderCreatedAt})
	if err != nil {
		return nil, remoteErr("listing published sessions", err)
	}
	return recs, nil
}

// ListOwned returns all of userID's records, most recently updated first.
func (s *Service) ListOwned(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrPermission
	}
	recs, err := s.records.List(ctx, ListOptions{OwnerID: userID, OrderBy: OrderUpdatedAt})
	if err != nil {
		return nil, remoteErr("listing owned sessions", err)
	}
	return recs, nil
}

// Get fetches one record. Drafts are only visible to their owner; viewerID
// may be empty for guests.
func (s *Service) Get(ctx context.Context, viewerID, id string) (*Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	rec, err := s.records.Get(ctx, viewerID, id)
	if err != nil {
		return nil, s.translate("getting session", err)
	}
	return rec, nil
}

// Insert creates a record owned by ownerID and returns it with its new id.
func (s *Service) Insert(ctx context.Context, ownerID string, fields Fields, status Status) (*Record, error) {
	if ownerID == "" {
		return nil, ErrPermission
	}
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &Record{
		ID:        uuid.NewString(),
		Status:    status,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.apply(fields)

	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: unknown owner %s", ErrPermission, ownerID)
		}
		return nil, remoteErr("creating session", err)
	}

	s.logActivity(ctx, ownerID, rec.ID, activity.TypeRecordCreated,
		fmt.Sprintf("created %s session %q", rec.Status, rec.Title))
	return rec, nil
}

// Update replaces the editable fields of an owned record.
func (s *Service) Update(ctx context.Context, userID, id string, fields Fields) (*Record, error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}
	rec, err := s.mutate(ctx, userID, id, "updating session", func(rec *Record) {
		rec.apply(fields)
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, userID, rec.ID, activity.TypeRecordUpdated,
		fmt.Sprintf("updated session %q", rec.Title))
	return rec, nil
}

// SetStatus is the only path that changes the status of an existing record.
func (s *Service) SetStatus(ctx context.Context, userID, id string, status Status) (*Record, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}
	rec, err := s.mutate(ctx, userID, id, "setting session status", func(rec *Record) {
		rec.Status = status
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, userID, rec.ID, activity.TypeStatusChanged,
		fmt.Sprintf("session %q is now %s", rec.Title, rec.Status))
	return rec, nil
}

// Delete permanently removes an owned record.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrPermission
	}
	if id == "" {
		return ErrMissingID
	}
	if err := s.records.Delete(ctx, userID, id); err != nil {
		return s.translate("deleting session", err)
	}
	s.logActivity(ctx, userID, id, activity.TypeRecordDeleted, "deleted session")
	return nil
}

func (s *Service) mutate(ctx context.Context, userID, id, op string, change func(*Record)) (*Record, error) {
	if userID == "" {
		return nil, ErrPermission
	}
	if id == "" {
		return nil, ErrMissingID
	}

	current, err := s.records.Get(ctx, userID, id)
	if err != nil {
		return nil, s.translate(op, err)
	}

	next := *current
	change(&next)
	next.UpdatedAt = s.advance(current.UpdatedAt)

	if err := s.records.Update(ctx, userID, &next); err != nil {
		return nil, s.translate(op, err)
	}
	return &next, nil
}

// advance returns now, or a microsecond past prev when the clock has not moved.
func (s *Service) advance(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *Service) translate(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRecordNotFound
	}
	return remoteErr(op, err)
}

func (s *Service) logActivity(ctx context.Context, userID, recordID string, typ activity.ActivityType, summary string) {
	if s.activities == nil {
		return
	}
	err := s.activities.Log(ctx, &activity.ActivityEntry{
		UserID:       userID,
		RecordID:     &recordID,
		ActivityType: typ,
		Summary:      summary,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("activity log failed", "record_id", recordID, "type", typ, "error", err)
	}
}
