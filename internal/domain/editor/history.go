package editor

import "sync"

// History is an in-memory Navigator that remembers the current address.
type History struct {
	mu      sync.Mutex
	current string
	visits  []string
}

// NewHistory starts at path.
func NewHistory(path string) *History {
	return &History{current: path, visits: []string{path}}
}

func (h *History) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = path
	if n := len(h.visits); n > 0 {
		h.visits[n-1] = path
	} else {
		h.visits = append(h.visits, path)
	}
}

func (h *History) Navigate(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = path
	h.visits = append(h.visits, path)
}

// Current returns the current address.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Visits lists the addresses navigated to, oldest first. Replaced entries
// show their latest address.
func (h *History) Visits() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.visits...)
}
