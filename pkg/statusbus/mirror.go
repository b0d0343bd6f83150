package statusbus

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// DefaultMirrorBuffer is the number of events a Mirror queues before dropping.
const DefaultMirrorBuffer = 64

// publishTimeout bounds a single publish.
const publishTimeout = 2 * time.Second

// Publisher publishes events. *Client implements it.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Mirror forwards events to a Publisher from its own goroutine. Offer never
// blocks, so callers on a latency-sensitive path can hand events over freely.
type Mirror struct {
	publisher Publisher
	queue     chan *Event

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewMirror creates a Mirror with a queue of the given size.
func NewMirror(publisher Publisher, buffer int) *Mirror {
	if buffer <= 0 {
		buffer = DefaultMirrorBuffer
	}
	return &Mirror{
		publisher: publisher,
		queue:     make(chan *Event, buffer),
	}
}

// Offer queues an event. It returns false, dropping the event, when the
// queue is full.
func (m *Mirror) Offer(e *Event) bool {
	select {
	case m.queue <- e:
		return true
	default:
		m.dropped.Add(1)
		return false
	}
}

// Run publishes queued events until ctx is cancelled. Publish failures are
// logged and counted; the event is not retried.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.queue:
			if !m.publish(ctx, e) && ctx.Err() != nil {
				return
			}
		}
	}
}

// Flush publishes whatever is still queued. It must not run concurrently
// with Run; call it after Run has returned to deliver the final events of a
// session.
func (m *Mirror) Flush(ctx context.Context) {
	for {
		select {
		case e := <-m.queue:
			if !m.publish(ctx, e) && ctx.Err() != nil {
				return
			}
		default:
			return
		}
	}
}

func (m *Mirror) publish(ctx context.Context, e *Event) bool {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := m.publisher.Publish(pubCtx, e); err != nil {
		if ctx.Err() != nil {
			return false
		}
		m.failed.Add(1)
		log.Printf("[WARN] Status bus publish failed: %v", err)
		return false
	}
	m.published.Add(1)
	return true
}

// Stats reports how many events were published, dropped and failed.
func (m *Mirror) Stats() (published, dropped, failed int64) {
	return m.published.Load(), m.dropped.Load(), m.failed.Load()
}
