package ttlcache

import "sync/atomic"

// Observer is notified of cache outcomes. Implementations must be cheap;
// they run on the owning poll goroutine.
type Observer interface {
	// Hit is called when a value younger than the TTL is returned.
	Hit(name string)

	// Miss is called whenever the fetch function is about to be invoked.
	Miss(name string)

	// StaleServe is called when a fetch failed and the previous value was returned.
	StaleServe(name string)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) Hit(string)        {}
func (NoopObserver) Miss(string)       {}
func (NoopObserver) StaleServe(string) {}

// Counters is an Observer that counts events. Safe for concurrent readers.
type Counters struct {
	Hits        atomic.Int64
	Misses      atomic.Int64
	StaleServes atomic.Int64
}

func (c *Counters) Hit(string)        { c.Hits.Add(1) }
func (c *Counters) Miss(string)       { c.Misses.Add(1) }
func (c *Counters) StaleServe(string) { c.StaleServes.Add(1) }

var (
	_ Observer = NoopObserver{}
	_ Observer = (*Counters)(nil)
)
