package autosave

import "errors"

// ErrClosed indicates use of a pipeline after Close.
var ErrClosed = errors.New("autosave pipeline closed")
