package activity

import "time"

// ActivityType represents the type of record lifecycle event
type ActivityType string

const (
	TypeRecordCreated ActivityType = "record_created"
	TypeRecordUpdated ActivityType = "record_updated"
	TypeStatusChanged ActivityType = "status_changed"
	TypeRecordDeleted ActivityType = "record_deleted"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	UserID       string       `json:"user_id"`
	RecordID     *string      `json:"record_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	CreatedAt    time.Time    `json:"created_at"`
}
