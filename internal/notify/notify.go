// Package notify is the user-facing notification surface. Domain services
// report outcomes through a Notifier; the Feed keeps recent notifications so
// clients can read them back.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Severity of a notification.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityDestructive Severity = "destructive"
)

// Notification is one message for the user.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier accepts notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Info builds an informational notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeverityInfo}
}

// Destructive builds a failure notification.
func Destructive(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeverityDestructive}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(Notification) {}

// DefaultFeedSize bounds the feed when no size is given.
const DefaultFeedSize = 100

// Feed is a bounded, in-memory notification log that also mirrors every
// notification to the structured logger.
type Feed struct {
	mu     sync.Mutex
	items  []Notification
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// NewFeed creates a feed keeping at most limit notifications.
func NewFeed(limit int, logger *slog.Logger) *Feed {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Feed{limit: limit, logger: logger, now: time.Now}
}

// Notify appends n, dropping the oldest entry when full.
func (f *Feed) Notify(n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = f.now().UTC()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}

	level := slog.LevelInfo
	if n.Severity == SeverityDestructive {
		level = slog.LevelWarn
	}
	f.logger.Log(context.Background(), level, "notification", "title", n.Title, "description", n.Description)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notification(nil), f.items[over:]...)
	}
}

// Recent returns up to n notifications, newest last. n <= 0 returns all.
func (f *Feed) Recent(n int) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if n > 0 && len(f.items) > n {
		start = len(f.items) - n
	}
	out := make([]Notification, len(f.items)-start)
	copy(out, f.items[start:])
	return out
}

// Drain returns every notification and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Titles lists the titles currently in the feed, oldest first.
func (f *Feed) Titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.items))
	for _, n := range f.items {
		out = append(out, n.Title)
	}
	return out
}
