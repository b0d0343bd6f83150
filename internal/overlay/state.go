// Package overlay holds the lock-screen state and renders it.
//
// State is owned by the poller's apply loop: every field is written there
// and nowhere else, so no locking is needed. Updates from sources arrive as
// poller.Update values and are folded in by Apply; the fast tick refreshes
// the clock and the interpolated playback position.
package overlay

import (
	"log"
	"time"

	"github.com/dyluth/vigil/internal/accent"
	"github.com/dyluth/vigil/internal/auth"
	"github.com/dyluth/vigil/internal/background"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/editor"
	"github.com/dyluth/vigil/internal/media"
	"github.com/dyluth/vigil/internal/notify"
	"github.com/dyluth/vigil/internal/poller"
	"github.com/dyluth/vigil/internal/sysmon"
	"github.com/dyluth/vigil/internal/weather"
	"github.com/dyluth/vigil/pkg/statusbus"
	"github.com/jonboulle/clockwork"
)

// Names of updates that do not come from a polled source.
const (
	SourceNotification = "notification" // Data: notify.Event
	SourceAuth         = "auth"         // Data: auth.Attempt
	SourceInput        = "input"        // Data: int, number of typed characters
)

// Mirror receives a copy of every applied update. *statusbus.Mirror
// implements it.
type Mirror interface {
	Offer(e *statusbus.Event) bool
}

// State is everything the overlay shows.
type State struct {
	cfg       *config.Config
	sessionID string
	clock     clockwork.Clock
	mirror    Mirror

	Now   time.Time
	Ticks int

	Background background.Selection

	Media   *media.Snapshot // nil = offline
	Accent  accent.Color
	HasArt  bool
	Weather weather.Update
	Sys     *sysmon.Snapshot
	Editor  editor.Snapshot

	Notifications notify.Ring

	Auth     auth.Attempt
	InputLen int
}

// Option configures a State.
type Option func(*State)

// WithMirror forwards applied updates to the status bus.
func WithMirror(m Mirror) Option {
	return func(s *State) { s.mirror = m }
}

// NewState creates the initial state. The background starts as the static
// one until the background source reports.
func NewState(cfg *config.Config, sessionID string, clock clockwork.Clock, opts ...Option) *State {
	s := &State{
		cfg:        cfg,
		sessionID:  sessionID,
		clock:      clock,
		Now:        clock.Now(),
		Accent:     accent.Fallback,
		Background: background.Selection{Path: cfg.BackgroundImage, Dim: cfg.DimLevel},
		Weather:    weather.Update{Configured: cfg.WeatherConfigured()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionID identifies the lock session.
func (s *State) SessionID() string {
	return s.sessionID
}

// Config returns the configuration the state was built with.
func (s *State) Config() *config.Config {
	return s.cfg
}

// Apply folds one update into the state. It reports whether anything
// visible changed.
func (s *State) Apply(u poller.Update) bool {
	switch u.Source {
	case poller.TickSource:
		s.Ticks++
		if now, ok := u.Data.(time.Time); ok {
			s.Now = now
		} else {
			s.Now = s.clock.Now()
		}
		return true

	case media.SourceName:
		if u.Err != nil {
			// Offline until the player answers again
			s.Media, s.Accent, s.HasArt = nil, accent.Fallback, false
		} else if up, ok := u.Data.(media.Update); ok {
			s.Media, s.Accent, s.HasArt = up.Snapshot, up.Accent, up.HasArt
		}
		s.publish(statusbus.KindMedia, u.At, mediaPayload(s))

	case weather.SourceName:
		if up, ok := u.Data.(weather.Update); ok && u.Err == nil {
			s.Weather = up
			s.publish(statusbus.KindWeather, u.At, up)
		}

	case sysmon.SourceName:
		if snap, ok := u.Data.(*sysmon.Snapshot); ok && u.Err == nil {
			s.Sys = snap
			s.publish(statusbus.KindSysmon, u.At, snap)
		}

	case editor.SourceName:
		if snap, ok := u.Data.(editor.Snapshot); ok && u.Err == nil {
			s.Editor = snap
			s.publish(statusbus.KindEditor, u.At, editorPayload(snap))
		}

	case background.SourceName:
		if sel, ok := u.Data.(background.Selection); ok && u.Err == nil {
			s.Background = sel
		}

	case SourceNotification:
		if ev, ok := u.Data.(notify.Event); ok {
			s.Notifications.Append(ev)
			s.publish(statusbus.KindNotification, u.At, ev)
		}

	case SourceAuth:
		if a, ok := u.Data.(auth.Attempt); ok {
			if !a.Newer(s.Auth) {
				return false
			}
			s.Auth = a
			s.publish(statusbus.KindAuth, u.At, authPayload(a))
		}

	case SourceInput:
		if n, ok := u.Data.(int); ok {
			s.InputLen = n
		}

	default:
		log.Printf("[DEBUG] overlay: ignoring update from unknown source %q", u.Source)
		return false
	}
	return true
}

// Progress returns the interpolated playback position.
func (s *State) Progress() (positionUS int64, ok bool) {
	return media.Interpolate(s.Media, s.clock.Now())
}

// PublishSession mirrors a session lifecycle event.
func (s *State) PublishSession(phase string) {
	s.publish(statusbus.KindSession, s.clock.Now(), map[string]string{"phase": phase})
}

func (s *State) publish(kind statusbus.Kind, at time.Time, payload any) {
	if s.mirror == nil {
		return
	}
	if at.IsZero() {
		at = s.clock.Now()
	}
	e, err := statusbus.NewEvent(s.sessionID, kind, at, payload)
	if err != nil {
		log.Printf("[WARN] overlay: %v", err)
		return
	}
	if !s.mirror.Offer(e) {
		log.Printf("[DEBUG] overlay: status bus queue full, dropped %s event", kind)
	}
}

type mediaEvent struct {
	Online bool            `json:"online"`
	Track  *media.Snapshot `json:"track,omitempty"`
	Accent string          `json:"accent"`
}

func mediaPayload(s *State) mediaEvent {
	return mediaEvent{Online: s.Media != nil, Track: s.Media, Accent: s.Accent.Hex()}
}

// editorPayload omits the code excerpt; file contents stay on the machine.
func editorPayload(snap editor.Snapshot) map[string]any {
	return map[string]any{"running": snap.Running, "file_name": snap.FileName}
}

func authPayload(a auth.Attempt) map[string]any {
	return map[string]any{"state": a.State.String(), "failures": a.Count}
}
