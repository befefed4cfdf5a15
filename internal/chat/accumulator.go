package chat

import "strings"

// Accumulator folds a turn's content deltas into one growing string and
// notifies an observer after every increment. Deltas are concatenated in
// arrival order, never reordered or deduplicated, so the tracked text is
// monotonically append-only within a turn.
//
// An Accumulator belongs to a single turn's goroutine and is not safe for
// concurrent use.
type Accumulator struct {
	buf     strings.Builder
	publish func(full string)
}

// NewAccumulator creates an Accumulator that calls publish with the updated
// full text after each [Accumulator.Append]. publish may be nil.
func NewAccumulator(publish func(full string)) *Accumulator {
	return &Accumulator{publish: publish}
}

// Append concatenates delta onto the tracked message and publishes the
// updated full text.
func (a *Accumulator) Append(delta string) {
	a.buf.WriteString(delta)
	if a.publish != nil {
		a.publish(a.buf.String())
	}
}

// Value returns the text accumulated so far.
func (a *Accumulator) Value() string {
	return a.buf.String()
}

// Reset clears the accumulator for a new turn.
func (a *Accumulator) Reset() {
	a.buf.Reset()
}
