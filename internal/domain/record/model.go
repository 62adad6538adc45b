package record

import "time"

// Status is the publication state of a session record
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Fields are the user-editable parts of a record.
type Fields struct {
	Title            string   `json:"title"`
	Tags             []string `json:"tags"`
	ContentReference string   `json:"json_file_url"`
}

// Normalized returns a copy with a non-nil, independent tag slice.
func (f Fields) Normalized() Fields {
	tags := make([]string, len(f.Tags))
	copy(tags, f.Tags)
	f.Tags = tags
	return f
}

// Record is a persisted wellness session
type Record struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Tags             []string  `json:"tags"`
	ContentReference string    `json:"json_file_url,omitempty"`
	Status           Status    `json:"status"`
	OwnerID          string    `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Fields returns the editable part of the record.
func (r Record) Fields() Fields {
	return Fields{
		Title:            r.Title,
		Tags:             r.Tags,
		ContentReference: r.ContentReference,
	}.Normalized()
}

func (r *Record) apply(f Fields) {
	f = f.Normalized()
	r.Title = f.Title
	r.Tags = f.Tags
	r.ContentReference = f.ContentReference
}

// Partitioned groups a user's records for display.
type Partitioned struct {
	Drafts    []Record `json:"drafts"`
	Published []Record `json:"published"`
}

// Partition splits records by status, preserving order within each group.
func Partition(records []Record) Partitioned {
	p := Partitioned{Drafts: []Record{}, Published: []Record{}}
	for _, rec := range records {
		switch rec.Status {
		case StatusPublished:
			p.Published = append(p.Published, rec)
		default:
			p.Drafts = append(p.Drafts, rec)
		}
	}
	return p
}
