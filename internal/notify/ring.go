// Package notify keeps the most recent desktop notifications and listens for
// new ones on the D-Bus session bus.
package notify

import "time"

// Capacity is the number of notifications retained.
const Capacity = 5

// DisplayCount is how many notifications the overlay shows.
const DisplayCount = 3

// Event is one desktop notification.
type Event struct {
	App       string    `json:"app"`
	Summary   string    `json:"summary"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Ring is a fixed-capacity FIFO of notification events.
// It has a single writer; it performs no locking.
type Ring struct {
	buf   [Capacity]Event
	start int // index of the oldest event
	size  int
}

// Append inserts e, evicting the oldest event once the ring is full.
func (r *Ring) Append(e Event) {
	if r.size < Capacity {
		r.buf[(r.start+r.size)%Capacity] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % Capacity
}

// Len returns the number of retained events.
func (r *Ring) Len() int {
	return r.size
}

// All returns the retained events in insertion order, oldest first.
func (r *Ring) All() []Event {
	out := make([]Event, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%Capacity]
	}
	return out
}

// Recent returns up to n of the newest events, newest first.
func (r *Ring) Recent(n int) []Event {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+r.size-1-i)%Capacity]
	}
	return out
}
