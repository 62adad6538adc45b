package editor

import (
	"strings"

	"github.com/rpggio/wellnest/internal/domain/record"
)

// Field names an editable form field.
type Field string

const (
	FieldTitle            Field = "title"
	FieldTags             Field = "tags"
	FieldContentReference Field = "json_file_url"
)

// Phase is the editor's position in the record lifecycle.
type Phase string

const (
	PhaseNew       Phase = "new"
	PhaseDraft     Phase = "persisted-draft"
	PhasePublished Phase = "persisted-published"
	PhaseGone      Phase = "gone"
)

func phaseOf(status record.Status) Phase {
	if status == record.StatusPublished {
		return PhasePublished
	}
	return PhaseDraft
}

const (
	PathEditor     = "/editor"
	PathMySessions = "/my-sessions"
)

// UntitledTitle stands in for a blank title in autosaved drafts.
const UntitledTitle = "Untitled Session"

// EditorPath is the address of the editor for a record.
func EditorPath(id string) string {
	if id == "" {
		return PathEditor
	}
	return PathEditor + "/" + id
}

// ParseTags splits comma-separated input, trimming blanks away.
func ParseTags(input string) []string {
	tags := []string{}
	for _, tag := range strings.Split(input, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// FormatTags renders tags the way the form shows them.
func FormatTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Form is the raw form input.
type Form struct {
	Title            string `json:"title"`
	Tags             string `json:"tags"`
	ContentReference string `json:"json_file_url"`
}

// IsBlank reports whether every field is empty after trimming.
func (f Form) IsBlank() bool {
	return strings.TrimSpace(f.Title) == "" &&
		strings.TrimSpace(f.Tags) == "" &&
		strings.TrimSpace(f.ContentReference) == ""
}

// Fields returns the record fields the form describes.
func (f Form) Fields() record.Fields {
	return record.Fields{
		Title:            strings.TrimSpace(f.Title),
		Tags:             ParseTags(f.Tags),
		ContentReference: strings.TrimSpace(f.ContentReference),
	}
}

func (f Form) draftFields() record.Fields {
	fields := f.Fields()
	if fields.Title == "" {
		fields.Title = UntitledTitle
	}
	return fields
}

func formOf(rec *record.Record) Form {
	return Form{
		Title:            rec.Title,
		Tags:             FormatTags(rec.Tags),
		ContentReference: rec.ContentReference,
	}
}
