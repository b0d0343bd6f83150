// Package auth implements the unlock state machine.
//
// A Machine moves Idle -> Checking on Submit, runs the credential check off
// the caller's goroutine, then lands in Success (terminating the session after
// a short delay) or Failed (returning to Idle after a longer delay). Only one
// check may be in flight; Submit outside Idle is ignored. Any error from the
// checker, including a missing authentication mechanism, counts as a failure.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// CheckTimeout bounds a single credential check.
	CheckTimeout = 5 * time.Second

	// SuccessDelay is the pause between Success and session termination.
	SuccessDelay = 400 * time.Millisecond

	// FailureDelay is how long the Failed state is shown before Idle.
	FailureDelay = 900 * time.Millisecond
)

// ErrCheckTimeout is reported when the checker does not answer in time.
var ErrCheckTimeout = errors.New("credential check timed out")

// State is the unlock state.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Attempt is the observable state: the current state and how many checks
// have failed so far. Seq increases with every transition, so observers that
// receive attempts out of order can keep the newest.
type Attempt struct {
	Count int
	State State
	Seq   uint64
}

// Newer reports whether a is a later transition than b.
func (a Attempt) Newer(b Attempt) bool {
	return a.Seq > b.Seq
}

// Checker verifies a credential. It returns false for a wrong credential and
// an error when verification itself could not be performed.
type Checker interface {
	Check(ctx context.Context, credential string) (bool, error)
}

// Machine is safe for concurrent use.
type Machine struct {
	checker   Checker
	clock     clockwork.Clock
	timeout   time.Duration
	onChange  func(Attempt)
	terminate func()

	mu      sync.Mutex
	attempt Attempt
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used for the Success and Failed delays.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Machine) { m.clock = clock }
}

// WithCheckTimeout overrides CheckTimeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// OnChange registers a callback invoked after every transition. It runs on
// the goroutine that caused the transition, outside the Machine's lock, so
// calls may arrive out of order; compare Attempt.Seq.
func OnChange(fn func(Attempt)) Option {
	return func(m *Machine) { m.onChange = fn }
}

// OnTerminate registers the session-end callback fired SuccessDelay after a
// successful check.
func OnTerminate(fn func()) Option {
	return func(m *Machine) { m.terminate = fn }
}

// NewMachine creates a Machine in the Idle state.
func NewMachine(checker Checker, opts ...Option) *Machine {
	m := &Machine{
		checker:   checker,
		clock:     clockwork.NewRealClock(),
		timeout:   CheckTimeout,
		onChange:  func(Attempt) {},
		terminate: func() {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attempt returns the current state.
func (m *Machine) Attempt() Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Submit starts a check of credential. It returns false, without starting a
// check, unless the machine is Idle. The caller clears its input as soon as
// Submit returns true.
func (m *Machine) Submit(credential string) bool {
	m.mu.Lock()
	if m.attempt.State != StateIdle {
		m.mu.Unlock()
		return false
	}
	m.attempt.State = StateChecking
	m.attempt.Seq++
	snapshot := m.attempt
	m.mu.Unlock()

	m.onChange(snapshot)
	go m.check(credential)
	return true
}

// check runs the checker with a hard timeout and applies the verdict.
func (m *Machine) check(credential string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	type verdict struct {
		ok  bool
		err error
	}
	done := make(chan verdict, 1)
	go func() {
		ok, err := m.checker.Check(ctx, credential)
		done <- verdict{ok: ok, err: err}
	}()

	var v verdict
	select {
	case v = <-done:
	case <-ctx.Done():
		v = verdict{err: ErrCheckTimeout}
	}

	switch {
	case errors.Is(v.err, ErrMechanismUnavailable):
		log.Printf("[ERROR] Unlock denied: %v", v.err)
		v.ok = false
	case v.err != nil:
		log.Printf("[WARN] Unlock check failed: %v", v.err)
		v.ok = false
	}

	if v.ok {
		m.succeed()
	} else {
		m.fail()
	}
}

func (m *Machine) succeed() {
	m.mu.Lock()
	m.attempt.State = StateSuccess
	m.attempt.Seq++
	snapshot := m.attempt
	m.clock.AfterFunc(SuccessDelay, m.terminate)
	m.mu.Unlock()

	log.Printf("[INFO] Unlock succeeded")
	m.onChange(snapshot)
}

func (m *Machine) fail() {
	m.mu.Lock()
	m.attempt.Count++
	m.attempt.State = StateFailed
	m.attempt.Seq++
	snapshot := m.attempt
	m.clock.AfterFunc(FailureDelay, m.reset)
	m.mu.Unlock()

	log.Printf("[INFO] Unlock failed (attempt %d)", snapshot.Count)
	m.onChange(snapshot)
}

// reset returns a Failed machine to Idle.
func (m *Machine) reset() {
	m.mu.Lock()
	if m.attempt.State != StateFailed {
		m.mu.Unlock()
		return
	}
	m.attempt.State = StateIdle
	m.attempt.Seq++
	snapshot := m.attempt
	m.mu.Unlock()

	m.onChange(snapshot)
}
