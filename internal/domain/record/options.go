package record

// OrderField names a column records can be sorted by, newest first.
type OrderField string

const (
	OrderCreatedAt OrderField = "created_at"
	OrderUpdatedAt OrderField = "updated_at"
)

// ListOptions provides filtering options for listing records.
type ListOptions struct {
	Status  Status
	OwnerID string
	OrderBy OrderField
	Limit   int
	Offset  int
}
