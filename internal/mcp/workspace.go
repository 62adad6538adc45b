package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/wellnest/internal/domain/autosave"
	"github.com/rpggio/wellnest/internal/domain/editor"
	"github.com/rpggio/wellnest/internal/notify"
)

// ErrNoEditor indicates an editing tool called before open_editor.
var ErrNoEditor = errors.New("no editor open")

// EditorSession is one authoring screen and the address bar it drives.
type EditorSession struct {
	Controller *editor.Controller
	History    *editor.History
}

// Workspace holds one editor per MCP session.
type Workspace struct {
	records  editor.Records
	owner    autosave.Owner
	notifier notify.Notifier
	opts     autosave.Options
	logger   *slog.Logger

	mu      sync.Mutex
	editors map[string]*EditorSession
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(records editor.Records, owner autosave.Owner, notifier notify.Notifier, opts autosave.Options, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workspace{
		records:  records,
		owner:    owner,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		editors:  make(map[string]*EditorSession),
	}
}

// Open replaces the session's editor with a fresh one showing id, or a new
// draft when id is empty. A failed load leaves no editor open.
func (w *Workspace) Open(ctx context.Context, key, id string) (*EditorSession, error) {
	w.CloseEditor(key)

	history := editor.NewHistory(editor.PathEditor)
	ed := &EditorSession{
		Controller: editor.New(w.records, w.owner, w.notifier, history, w.opts, w.logger.With("editor", key)),
		History:    history,
	}
	if err := ed.Controller.Load(ctx, id); err != nil {
		ed.Controller.Close()
		return nil, err
	}

	w.mu.Lock()
	w.editors[key] = ed
	w.mu.Unlock()
	w.logger.Debug("editor opened", "editor", key, "record_id", id)
	return ed, nil
}

// Editor returns the session's open editor.
func (w *Workspace) Editor(key string) (*EditorSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ed, ok := w.editors[key]
	if !ok {
		return nil, ErrNoEditor
	}
	return ed, nil
}

// CloseEditor cancels the session's pending autosave and forgets its
// editor. It reports whether an editor was open.
func (w *Workspace) CloseEditor(key string) bool {
	w.mu.Lock()
	ed, ok := w.editors[key]
	delete(w.editors, key)
	w.mu.Unlock()
	if ok {
		ed.Controller.Close()
	}
	return ok
}

// Close closes every editor.
func (w *Workspace) Close() {
	w.mu.Lock()
	editors := w.editors
	w.editors = make(map[string]*EditorSession)
	w.mu.Unlock()
	for _, ed := range editors {
		ed.Controller.Close()
	}
}
