package statusbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names what an Event describes.
type Kind string

const (
	KindSession      Kind = "session"      // session started or ended
	KindMedia        Kind = "media"        // playback snapshot
	KindWeather      Kind = "weather"      // current conditions and forecast
	KindSysmon       Kind = "sysmon"       // system sample
	KindEditor       Kind = "editor"       // editor state
	KindNotification Kind = "notification" // desktop notification received
	KindAuth         Kind = "auth"         // unlock attempt state
)

// Event is one overlay update as seen on the bus.
type Event struct {
	SessionID string          `json:"session_id"` // UUID of the lock session
	Kind      Kind            `json:"kind"`
	At        time.Time       `json:"at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an Event, marshalling payload to JSON.
func NewEvent(sessionID string, kind Kind, at time.Time, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return &Event{SessionID: sessionID, Kind: kind, At: at, Payload: raw}, nil
}

// Validate checks the event can be published.
func (e *Event) Validate() error {
	if _, err := uuid.Parse(e.SessionID); err != nil {
		return fmt.Errorf("invalid session id %q: %w", e.SessionID, err)
	}
	switch e.Kind {
	case KindSession, KindMedia, KindWeather, KindSysmon, KindEditor, KindNotification, KindAuth:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.At.IsZero() {
		return fmt.Errorf("event time is not set")
	}
	return nil
}
