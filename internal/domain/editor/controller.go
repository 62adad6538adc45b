package editor

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/wellnest/internal/domain/autosave"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/notify"
)

// Controller drives one authoring screen: form state, autosave, and the
// explicit save, publish, unpublish and delete actions.
type Controller struct {
	records  Records
	owner    autosave.Owner
	notifier notify.Notifier
	nav      Navigator
	opts     autosave.Options
	logger   *slog.Logger

	mu       sync.Mutex
	form     Form
	phase    Phase
	id       string
	pipeline *autosave.Pipeline
}

// New creates a controller showing an empty draft.
func New(records Records, owner autosave.Owner, notifier notify.Notifier, nav Navigator, opts autosave.Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if nav == nil {
		nav = NewHistory(PathEditor)
	}
	c := &Controller{
		records:  records,
		owner:    owner,
		notifier: notifier,
		nav:      nav,
		opts:     opts,
		logger:   logger,
		phase:    PhaseNew,
	}
	c.pipeline = c.newPipeline()
	return c
}

func (c *Controller) newPipeline() *autosave.Pipeline {
	var p *autosave.Pipeline
	opts := c.opts
	opts.OnCreated = func(rec *record.Record) { c.bind(p, rec) }
	p = autosave.New(c.records, c.owner, c.notifier, opts, c.logger)
	return p
}

// Load resets the editor. An empty id starts a new draft; otherwise the
// record is fetched, and on failure the user is sent back to their list.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	old := c.pipeline
	c.pipeline = c.newPipeline()
	c.form = Form{}
	c.phase = PhaseNew
	c.id = ""
	pipeline := c.pipeline
	c.mu.Unlock()
	old.Close()

	if id == "" {
		c.nav.Replace(PathEditor)
		return nil
	}

	viewerID, _ := c.owner.CurrentUserID()
	rec, err := c.records.Get(ctx, viewerID, id)
	if err != nil {
		c.logger.Warn("loading record failed", "record_id", id, "error", err)
		c.notifier.Notify(notify.Destructive("Error", "Failed to load session"))
		c.nav.Navigate(PathMySessions)
		return err
	}

	c.mu.Lock()
	c.form = formOf(rec)
	c.phase = phaseOf(rec.Status)
	c.id = rec.ID
	c.mu.Unlock()

	pipeline.Bind(rec.ID, rec.Fields())
	c.nav.Replace(EditorPath(rec.ID))
	return nil
}

// OnFieldChange sets one form field and schedules an autosave unless the
// whole form is blank.
func (c *Controller) OnFieldChange(field Field, value string) error {
	c.mu.Lock()
	if c.phase == PhaseGone {
		c.mu.Unlock()
		return ErrRecordGone
	}
	switch field {
	case FieldTitle:
		c.form.Title = value
	case FieldTags:
		c.form.Tags = value
	case FieldContentReference:
		c.form.ContentReference = value
	default:
		c.mu.Unlock()
		return ErrUnknownField
	}
	form := c.form
	pipeline := c.pipeline
	c.mu.Unlock()

	if !form.IsBlank() {
		pipeline.ScheduleSave(form.draftFields())
	}
	return nil
}

// SaveDraftNow persists the form immediately. A blank title is rejected
// without any store call.
func (c *Controller) SaveDraftNow(ctx context.Context) error {
	form, pipeline, err := c.titled("Please enter a title for your session")
	if err != nil {
		return err
	}
	return pipeline.FlushNow(ctx, form.Fields())
}

// Publish makes the record public. A new record is inserted as published
// in a single call; a persisted one is updated and then flipped.
func (c *Controller) Publish(ctx context.Context) error {
	form, pipeline, err := c.titled("Please enter a title before publishing")
	if err != nil {
		return err
	}

	userID, err := c.owner.CurrentUserID()
	if err != nil {
		return c.publishFailed(err)
	}

	fields := form.Fields()
	var published *record.Record
	err = pipeline.Exclusive(func(id string) (*record.Record, error) {
		if id == "" {
			rec, err := c.records.Insert(ctx, userID, fields, record.StatusPublished)
			published = rec
			return rec, err
		}
		if _, err := c.records.Update(ctx, userID, id, fields); err != nil {
			return nil, err
		}
		rec, err := c.records.SetStatus(ctx, userID, id, record.StatusPublished)
		published = rec
		return rec, err
	})
	if err != nil {
		return c.publishFailed(err)
	}

	c.mu.Lock()
	c.id = published.ID
	c.phase = PhasePublished
	c.mu.Unlock()

	c.logger.Info("record published", "record_id", published.ID)
	c.notifier.Notify(notify.Info("Published!", "Your wellness session has been published successfully"))
	c.nav.Replace(EditorPath(published.ID))
	c.nav.Navigate(PathMySessions)
	return nil
}

// Unpublish returns a published record to draft.
func (c *Controller) Unpublish(ctx context.Context) error {
	c.mu.Lock()
	phase, pipeline, form := c.phase, c.pipeline, c.form
	c.mu.Unlock()

	switch phase {
	case PhaseGone:
		return ErrRecordGone
	case PhasePublished:
	default:
		return ErrInvalidTransition
	}

	userID, err := c.owner.CurrentUserID()
	if err == nil {
		err = pipeline.Exclusive(func(id string) (*record.Record, error) {
			if _, err := c.records.SetStatus(ctx, userID, id, record.StatusDraft); err != nil {
				return nil, err
			}
			return nil, nil
		})
	}
	if err != nil {
		c.logger.Warn("unpublish failed", "error", err)
		c.notifier.Notify(notify.Destructive("Unpublish Failed", "Failed to unpublish session. Please try again."))
		return err
	}

	c.mu.Lock()
	c.phase = PhaseDraft
	c.mu.Unlock()

	c.notifier.Notify(notify.Info("Unpublished", "Your session is back in your drafts"))
	if !form.IsBlank() {
		pipeline.ScheduleSave(form.draftFields())
	}
	return nil
}

// Delete removes the persisted record for good. The editor is unusable
// afterwards.
func (c *Controller) Delete(ctx context.Context) error {
	c.mu.Lock()
	phase, pipeline := c.phase, c.pipeline
	c.mu.Unlock()

	switch phase {
	case PhaseGone:
		return ErrRecordGone
	case PhaseNew:
		return ErrInvalidTransition
	}

	userID, err := c.owner.CurrentUserID()
	if err == nil {
		err = pipeline.Exclusive(func(id string) (*record.Record, error) {
			return nil, c.records.Delete(ctx, userID, id)
		})
	}
	if err != nil {
		c.logger.Warn("delete failed", "error", err)
		c.notifier.Notify(notify.Destructive("Delete Failed", "Failed to delete session. Please try again."))
		return err
	}
	pipeline.Close()

	c.mu.Lock()
	id := c.id
	c.phase = PhaseGone
	c.mu.Unlock()

	c.logger.Info("record deleted", "record_id", id)
	c.notifier.Notify(notify.Info("Session Deleted", "Your session has been deleted"))
	c.nav.Navigate(PathMySessions)
	return nil
}

// Close cancels any pending autosave.
func (c *Controller) Close() {
	c.mu.Lock()
	pipeline := c.pipeline
	c.mu.Unlock()
	pipeline.Close()
}

// Phase returns the lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Status is the badge shown on the editor.
func (c *Controller) Status() record.Status {
	if c.Phase() == PhasePublished {
		return record.StatusPublished
	}
	return record.StatusDraft
}

// Form returns the raw form input.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Fields returns the record fields the form currently describes.
func (c *Controller) Fields() record.Fields {
	return c.Form().Fields()
}

// RecordID returns the bound record id, or "" for a new record.
func (c *Controller) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Address is the editor's canonical address.
func (c *Controller) Address() string {
	return EditorPath(c.RecordID())
}

// titled returns the form when its title is set, and otherwise notifies and
// fails without touching the store.
func (c *Controller) titled(description string) (Form, *autosave.Pipeline, error) {
	c.mu.Lock()
	form, phase, pipeline := c.form, c.phase, c.pipeline
	c.mu.Unlock()

	if phase == PhaseGone {
		return Form{}, nil, ErrRecordGone
	}
	if err := record.ValidateFields(form.Fields()); err != nil {
		c.notifier.Notify(notify.Destructive("Title Required", description))
		return Form{}, nil, ErrTitleRequired
	}
	return form, pipeline, nil
}

func (c *Controller) publishFailed(err error) error {
	c.logger.Warn("publish failed", "record_id", c.RecordID(), "error", err)
	c.notifier.Notify(notify.Destructive("Publish Failed", "Failed to publish session. Please try again."))
	return err
}

// bind runs when the first autosave inserts the record. Inserts finishing
// after a reload belong to a discarded pipeline and are ignored.
func (c *Controller) bind(p *autosave.Pipeline, rec *record.Record) {
	c.mu.Lock()
	if c.pipeline != p {
		c.mu.Unlock()
		return
	}
	c.id = rec.ID
	if c.phase == PhaseNew {
		c.phase = phaseOf(rec.Status)
	}
	c.mu.Unlock()
	c.nav.Replace(EditorPath(rec.ID))
}
