package agent

import "sync"

// Progress statuses published while a bulk import runs.
const (
	ProgressStarted  = "started"
	ProgressFinished = "finished"
	ProgressFailed   = "failed"
)

// ProgressEvent describes one step of a bulk import, suitable for
// streaming to clients as server-sent events.
type ProgressEvent struct {
	Status     string `json:"status"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Total      int    `json:"total,omitempty"`
	Imported   int    `json:"imported,omitempty"`
	Failed     int    `json:"failed,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
	Duplicates int    `json:"duplicates,omitempty"`
}

// ProgressHub fans bulk import events out to any number of subscribers.
// Slow subscribers drop events rather than stalling the import.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[chan ProgressEvent]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[chan ProgressEvent]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the channel.
func (h *ProgressHub) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (h *ProgressHub) Publish(ev ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
