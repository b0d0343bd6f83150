// Package poller runs every status source on its own schedule and funnels
// the results into a single apply loop.
//
// Each source gets one unit goroutine with its own ticker. A unit fetches
// immediately on start and then once per interval; ticks that arrive while a
// fetch is still running are coalesced, so a source never has two fetches in
// flight. Every fetch is bounded by the source's timeout and runs with panic
// recovery, so a slow, failing or crashing source only affects itself.
//
// Results travel over one channel to the apply loop, which calls the apply
// function strictly one update at a time in completion order. Once the run
// context is cancelled, late results are dropped.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// TickSource is the name carried by fast-tick updates.
const TickSource = "tick"

// DefaultTick is the fast tick period used for clock and progress updates.
const DefaultTick = time.Second

var (
	// ErrFetchTimeout is reported when a fetch exceeds its source timeout.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrFetchPanic wraps a panic recovered from a fetch.
	ErrFetchPanic = errors.New("fetch panicked")
)

// Source is one independently polled status provider.
type Source interface {
	// Name identifies the source in updates, statuses and logs.
	Name() string

	// Interval is the time between fetch starts.
	Interval() time.Duration

	// Timeout bounds a single fetch.
	Timeout() time.Duration

	// Fetch produces the source's next value. Implementations may block up
	// to Timeout and should honour ctx.
	Fetch(ctx context.Context) (any, error)
}

// Update is one result delivered to the apply loop.
type Update struct {
	Source  string
	Data    any // time.Time for TickSource
	Err     error
	At      time.Time
	Latency time.Duration
}

// Status summarises a unit's history.
type Status struct {
	Name        string
	Runs        int64
	Errors      int64
	Coalesced   int64
	LastRun     time.Time
	LastLatency time.Duration
	LastError   string
}

// Poller owns the unit goroutines and the apply channel.
type Poller struct {
	sources []Source
	clock   clockwork.Clock
	tick    time.Duration

	updates chan Update

	mu       sync.Mutex
	statuses map[string]*Status
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock sets the clock used for tickers and timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

// WithTick overrides the fast tick period. Zero disables the fast tick.
func WithTick(d time.Duration) Option {
	return func(p *Poller) { p.tick = d }
}

// New creates a poller for the given sources. Nil sources are skipped, so
// callers can pass disabled widgets unconditionally.
func New(sources []Source, opts ...Option) *Poller {
	p := &Poller{
		clock:    clockwork.NewRealClock(),
		tick:     DefaultTick,
		statuses: make(map[string]*Status),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, src := range sources {
		if src == nil {
			continue
		}
		p.sources = append(p.sources, src)
		p.statuses[src.Name()] = &Status{Name: src.Name()}
	}
	p.updates = make(chan Update, len(p.sources)+1)
	return p
}

// Run starts every unit and runs the apply loop on the calling goroutine
// until ctx is cancelled. apply is never called concurrently and never after
// Run returns.
func (p *Poller) Run(ctx context.Context, apply func(Update)) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range p.sources {
		src := src
		g.Go(func() error {
			p.runUnit(gctx, src)
			return nil
		})
	}
	if p.tick > 0 {
		g.Go(func() error {
			p.runTicker(gctx)
			return nil
		})
	}

	log.Printf("[INFO] Poller started with %d source(s)", len(p.sources))

	for {
		select {
		case <-gctx.Done():
			err := g.Wait()
			log.Printf("[INFO] Poller stopped")
			return err
		case u := <-p.updates:
			if gctx.Err() != nil {
				continue
			}
			apply(u)
		}
	}
}

// Statuses returns a copy of every unit's status, sorted by name.
func (p *Poller) Statuses() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Status, 0, len(p.statuses))
	for _, s := range p.statuses {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// runTicker posts the current time every tick.
func (p *Poller) runTicker(ctx context.Context) {
	ticker := p.clock.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.Chan():
			p.post(ctx, Update{Source: TickSource, Data: now, At: now})
		}
	}
}

type result struct {
	data any
	err  error
}

// runUnit drives one source: fetch now, then on every tick unless the
// previous fetch is still running.
func (p *Poller) runUnit(ctx context.Context, src Source) {
	ticker := p.clock.NewTicker(src.Interval())
	defer ticker.Stop()

	// pending is non-nil while an abandoned (timed out) fetch is still running
	var pending <-chan result

	fetch := func() {
		if pending != nil {
			select {
			case <-pending:
				pending = nil
			default:
				p.record(src.Name(), func(s *Status) { s.Coalesced++ })
				log.Printf("[DEBUG] %s: previous fetch still running, skipping tick", src.Name())
				return
			}
		}

		u, stillRunning := p.fetchOnce(ctx, src)
		pending = stillRunning
		if ctx.Err() != nil {
			return
		}
		p.post(ctx, u)
	}

	fetch()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			fetch()
		}
	}
}

// fetchOnce runs one fetch with timeout and panic recovery. When the fetch
// outlives its timeout the returned channel delivers its eventual result.
func (p *Poller) fetchOnce(ctx context.Context, src Source) (Update, <-chan result) {
	fetchCtx, cancel := context.WithTimeout(ctx, src.Timeout())
	defer cancel()

	done := make(chan result, 1)
	start := p.clock.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrFetchPanic, r)}
			}
		}()
		data, err := src.Fetch(fetchCtx)
		done <- result{data: data, err: err}
	}()

	var (
		res     result
		running <-chan result
	)
	select {
	case res = <-done:
	case <-fetchCtx.Done():
		res = result{err: fmt.Errorf("%s: %w after %s", src.Name(), ErrFetchTimeout, src.Timeout())}
		running = done
	}

	latency := p.clock.Since(start)
	p.record(src.Name(), func(s *Status) {
		s.Runs++
		s.LastRun = start
		s.LastLatency = latency
		if res.err != nil {
			s.Errors++
			s.LastError = res.err.Error()
		} else {
			s.LastError = ""
		}
	})

	if res.err != nil && ctx.Err() == nil {
		log.Printf("[WARN] %s: fetch failed: %v", src.Name(), res.err)
	}

	return Update{
		Source:  src.Name(),
		Data:    res.data,
		Err:     res.err,
		At:      p.clock.Now(),
		Latency: latency,
	}, running
}

// Post delivers an update produced outside the poller (a pushed
// notification, an unlock transition) to the same apply loop. It blocks
// until the update is queued or ctx is done.
func (p *Poller) Post(ctx context.Context, u Update) {
	if u.At.IsZero() {
		u.At = p.clock.Now()
	}
	p.post(ctx, u)
}

func (p *Poller) post(ctx context.Context, u Update) {
	select {
	case p.updates <- u:
	case <-ctx.Done():
	}
}

func (p *Poller) record(name string, fn func(*Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.statuses[name])
}
