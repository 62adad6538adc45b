package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/notify"
)

// Pipeline debounces edits of one record and persists them as a draft. The
// first successful flush inserts; every later flush updates the same id.
type Pipeline struct {
	store    Store
	owner    Owner
	notifier notify.Notifier
	opts     Options
	logger   *slog.Logger

	// flushMu is held across the remote call, one flush at a time.
	flushMu sync.Mutex

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	closed    bool
	recordID  string
	snapshot  string
	issued    uint64
	completed uint64
}

// New creates a pipeline for a record that has no id yet. Use Bind for an
// existing record.
func New(store Store, owner Owner, notifier notify.Notifier, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		store:    store,
		owner:    owner,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// ScheduleSave restarts the quiescence timer with fields as the pending
// payload. Earlier pending payloads are dropped.
func (p *Pipeline) ScheduleSave(fields record.Fields) {
	fields = fields.Normalized()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.stopLocked()
	gen := p.gen
	p.timer = time.AfterFunc(p.opts.Quiescence, func() { p.fire(gen, fields) })
}

// FlushNow cancels any pending timer and persists fields immediately.
// Unlike timer-driven flushes, the error is returned to the caller.
func (p *Pipeline) FlushNow(ctx context.Context, fields record.Fields) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.stopLocked()
	p.mu.Unlock()

	return p.flush(ctx, fields.Normalized())
}

// Exclusive cancels the pending timer and runs fn while no flush can run.
// fn receives the bound record id ("" when none); a returned record becomes
// the bound record and its fields the persisted snapshot.
func (p *Pipeline) Exclusive(fn func(recordID string) (*record.Record, error)) error {
	p.Cancel()

	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	rec, err := fn(p.RecordID())
	if err != nil {
		return err
	}
	if rec != nil {
		p.Bind(rec.ID, rec.Fields())
	}
	return nil
}

// Bind attaches the pipeline to a persisted record whose stored fields are
// fields.
func (p *Pipeline) Bind(id string, fields record.Fields) {
	snap, err := snapshotOf(fields.Normalized())
	if err != nil {
		p.logger.Warn("snapshot of bound record failed", "record_id", id, "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordID = id
	p.snapshot = snap
	p.issued++
	p.completed = p.issued
}

// RecordID returns the bound record id, or "" before the first insert.
func (p *Pipeline) RecordID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recordID
}

// Cancel drops the pending timer, if any.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Close cancels the pending timer; no flush starts afterwards. A flush
// already in flight is allowed to complete.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
}

func (p *Pipeline) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

// fire runs a timer-driven flush. The generation is checked once flushMu is
// held, so a timer that waited behind another flush is a no-op when it was
// superseded or the pipeline closed meanwhile.
func (p *Pipeline) fire(gen uint64, fields record.Fields) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.FlushTimeout)
	defer cancel()
	if err := p.flushLocked(ctx, fields); err != nil {
		p.logger.Debug("autosave absorbed failure", "error", err)
	}
}

func (p *Pipeline) flush(ctx context.Context, fields record.Fields) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()
	return p.flushLocked(ctx, fields)
}

// flushLocked must be called with flushMu held.
func (p *Pipeline) flushLocked(ctx context.Context, fields record.Fields) error {
	snap, err := snapshotOf(fields)
	if err != nil {
		return p.failed(fmt.Errorf("snapshot: %w", err))
	}

	p.mu.Lock()
	if snap == p.snapshot {
		p.mu.Unlock()
		return nil
	}
	id := p.recordID
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	userID, err := p.owner.CurrentUserID()
	if err != nil {
		return p.failed(err)
	}

	var rec *record.Record
	if id == "" {
		rec, err = p.store.Insert(ctx, userID, fields, record.StatusDraft)
	} else {
		rec, err = p.store.Update(ctx, userID, id, fields)
	}
	if err != nil {
		return p.failed(err)
	}

	created := false
	p.mu.Lock()
	if seq > p.completed {
		p.completed = seq
		p.snapshot = snap
	}
	if p.recordID == "" {
		p.recordID = rec.ID
		created = true
	}
	p.mu.Unlock()

	if created {
		p.logger.Info("draft created", "record_id", rec.ID)
		if p.opts.OnCreated != nil {
			p.opts.OnCreated(rec)
		}
	} else {
		p.logger.Debug("draft saved", "record_id", rec.ID, "seq", seq)
	}
	p.notifier.Notify(notify.Info("Draft saved", "Your changes have been automatically saved"))
	return nil
}

func (p *Pipeline) failed(err error) error {
	p.logger.Warn("autosave failed", "record_id", p.RecordID(), "error", err)
	p.notifier.Notify(notify.Destructive("Save failed", "Failed to save draft. Please try again."))
	return err
}

func snapshotOf(fields record.Fields) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
