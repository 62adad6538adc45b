package autosave

import (
	"context"

	"github.com/rpggio/wellnest/internal/domain/record"
)

// Store persists drafts. record.Service satisfies it.
type Store interface {
	Insert(ctx context.Context, ownerID string, fields record.Fields, status record.Status) (*record.Record, error)
	Update(ctx context.Context, userID, id string, fields record.Fields) (*record.Record, error)
}

// Owner supplies the acting identity at flush time.
type Owner interface {
	CurrentUserID() (string, error)
}
