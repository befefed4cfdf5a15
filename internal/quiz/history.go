package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// DefaultHistoryCap bounds how many completed quiz runs are retained.
const DefaultHistoryCap = 20

// Entry is one completed quiz run.
type Entry struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// TakenAt records when the run finished.
	TakenAt time.Time `json:"taken_at"`

	// Answers are the four selections the visitor made.
	Answers catalog.Answers `json:"answers"`

	// VideoIDs are the recommended videos, in suggestion order.
	VideoIDs []string `json:"video_ids"`
}

// History retains the most recent completed quiz runs, newest first. It is
// safe for concurrent use.
type History struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

// NewHistory creates a History holding at most capacity entries. A
// capacity below one falls back to [DefaultHistoryCap].
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity}
}

// Add records a completed run and returns the stored entry. When the cap
// is reached the oldest entry is dropped.
func (h *History) Add(answers catalog.Answers, videos []catalog.Video) Entry {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	e := Entry{
		ID:       uuid.NewString(),
		TakenAt:  time.Now().UTC(),
		Answers:  answers,
		VideoIDs: ids,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
	return e
}

// Entries returns the retained runs, newest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Len returns the number of retained runs.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
