package record

import (
	"context"

	"github.com/rpggio/wellnest/internal/domain/activity"
)

// RecordRepository is the row store for session records. Ownership is
// enforced here: mutations only touch rows owned by ownerID, and Get only
// returns drafts to their owner.
type RecordRepository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, viewerID, id string) (*Record, error)
	Update(ctx context.Context, ownerID string, rec *Record) error
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, opts ListOptions) ([]Record, error)
}

// ActivityRepository records lifecycle events.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}
