package editor

import (
	"context"

	"github.com/rpggio/wellnest/internal/domain/record"
)

// Records is the record store the editor drives. record.Service satisfies it.
type Records interface {
	Get(ctx context.Context, viewerID, id string) (*record.Record, error)
	Insert(ctx context.Context, ownerID string, fields record.Fields, status record.Status) (*record.Record, error)
	Update(ctx context.Context, userID, id string, fields record.Fields) (*record.Record, error)
	SetStatus(ctx context.Context, userID, id string, status record.Status) (*record.Record, error)
	Delete(ctx context.Context, userID, id string) error
}

// Navigator moves the user between views. Replace changes the current
// address without navigating.
type Navigator interface {
	Replace(path string)
	Navigate(path string)
}
