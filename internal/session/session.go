// Package session runs one lock session: it wires the poller, the overlay
// state and renderer, the password prompt and the unlock state machine
// together and returns once the session is unlocked or cancelled.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"

	"github.com/dyluth/vigil/internal/auth"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/notify"
	"github.com/dyluth/vigil/internal/overlay"
	"github.com/dyluth/vigil/internal/poller"
	"github.com/jonboulle/clockwork"
)

// ErrCancelled is returned when the session ends without an unlock.
var ErrCancelled = errors.New("lock session cancelled before unlock")

// NotificationFunc listens for desktop notifications until ctx is done.
type NotificationFunc func(ctx context.Context, post func(notify.Event)) error

// Options are the collaborators of a session.
type Options struct {
	Config    *config.Config
	SessionID string
	Clock     clockwork.Clock // nil = real clock

	Sources       []poller.Source
	Checker       auth.Checker
	Notifications NotificationFunc // nil = no notification listener

	Input  io.Reader // raw-mode terminal
	Output io.Writer

	Mirror overlay.Mirror // nil = no status bus
}

// Run blocks until the credential is accepted, returning nil, or until ctx
// is cancelled, returning ErrCancelled.
//
// Input is read on a goroutine that is not waited for: a terminal read
// cannot be interrupted, so the reader is left behind when the session
// ends and the process exits shortly after.
func Run(ctx context.Context, opts Options) error {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stateOpts []overlay.Option
	if opts.Mirror != nil {
		stateOpts = append(stateOpts, overlay.WithMirror(opts.Mirror))
	}
	state := overlay.NewState(opts.Config, opts.SessionID, clock, stateOpts...)
	renderer := overlay.NewRenderer(opts.Output)

	p := poller.New(opts.Sources, poller.WithClock(clock))

	var unlocked atomic.Bool
	machine := auth.NewMachine(opts.Checker,
		auth.WithClock(clock),
		auth.OnChange(func(a auth.Attempt) {
			p.Post(ctx, poller.Update{Source: overlay.SourceAuth, Data: a})
		}),
		auth.OnTerminate(func() {
			unlocked.Store(true)
			cancel()
		}),
	)

	go func() {
		err := overlay.ReadPassword(ctx, opts.Input,
			func(n int) { p.Post(ctx, poller.Update{Source: overlay.SourceInput, Data: n}) },
			machine.Submit)
		if err != nil {
			log.Printf("[WARN] Password input stopped: %v", err)
		}
	}()

	if opts.Notifications != nil && opts.Config.ShowNotifications {
		go func() {
			err := opts.Notifications(ctx, func(ev notify.Event) {
				p.Post(ctx, poller.Update{Source: overlay.SourceNotification, Data: ev})
			})
			if err != nil {
				log.Printf("[WARN] Notification listener stopped: %v", err)
			}
		}()
	}

	log.Printf("[INFO] Lock session %s started", opts.SessionID)
	state.PublishSession("locked")
	if err := renderer.Draw(state); err != nil {
		log.Printf("[WARN] Failed to draw overlay: %v", err)
	}

	err := p.Run(ctx, func(u poller.Update) {
		if !state.Apply(u) {
			return
		}
		if err := renderer.Draw(state); err != nil {
			log.Printf("[WARN] Failed to draw overlay: %v", err)
		}
	})

	for _, st := range p.Statuses() {
		log.Printf("[DEBUG] Source %s: runs=%d errors=%d coalesced=%d last_error=%q",
			st.Name, st.Runs, st.Errors, st.Coalesced, st.LastError)
	}

	if !unlocked.Load() {
		state.PublishSession("aborted")
		log.Printf("[INFO] Lock session %s ended without unlock", opts.SessionID)
		return ErrCancelled
	}

	state.PublishSession("unlocked")
	log.Printf("[INFO] Lock session %s unlocked after %d failed attempt(s)", opts.SessionID, machine.Attempt().Count)
	return err
}
