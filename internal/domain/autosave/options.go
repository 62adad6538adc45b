package autosave

import (
	"time"

	"github.com/rpggio/wellnest/internal/domain/record"
)

const (
	// DefaultQuiescence is the idle time after the last edit before a flush.
	DefaultQuiescence = 5 * time.Second
	// DefaultFlushTimeout bounds a timer-driven flush.
	DefaultFlushTimeout = 30 * time.Second
)

// Options configures a Pipeline.
type Options struct {
	Quiescence   time.Duration
	FlushTimeout time.Duration
	// OnCreated runs once, after the first insert assigns the record id.
	OnCreated func(*record.Record)
}

func (o Options) withDefaults() Options {
	if o.Quiescence <= 0 {
		o.Quiescence = DefaultQuiescence
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = DefaultFlushTimeout
	}
	return o
}
