package session

import (
	"sync"
	"time"
)

// Progress percentages reported at each pipeline stage.
const (
	PercentDraining     = 0
	PercentTranscribing = 20
	PercentSummarizing  = 40
	PercentRendering    = 60
	PercentPublishing   = 80
	PercentDone         = 100
)

const (
	eventBuffer = 64
	// maxEntries bounds the retained history. Recent only ever serves the
	// tail, so older events are dropped once the cap is reached.
	maxEntries = 256
)

// ProgressEvent is one pipeline status update pushed to subscribers.
type ProgressEvent struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// ProgressStore keeps recent events and fans them out on a channel.
type ProgressStore struct {
	mu      sync.RWMutex
	entries []ProgressEvent
	events  chan ProgressEvent
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		events: make(chan ProgressEvent, eventBuffer),
	}
}

// Emit records an event. The channel send never blocks; a slow consumer
// loses live events but can still catch up through Recent.
func (s *ProgressStore) Emit(ev ProgressEvent) {
	ev.At = time.Now()

	s.mu.Lock()
	s.entries = append(s.entries, ev)
	if len(s.entries) > maxEntries {
		s.entries = append(s.entries[:0], s.entries[len(s.entries)-maxEntries:]...)
	}
	s.mu.Unlock()

	select {
	case s.events <- ev:
	default:
	}
}

// Events exposes the live event stream.
func (s *ProgressStore) Events() <-chan ProgressEvent {
	return s.events
}

// Recent returns up to n most recent events, oldest first.
func (s *ProgressStore) Recent(n int) []ProgressEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]ProgressEvent, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}
