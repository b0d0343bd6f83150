// Package watch prints status bus events for the watch command.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/dyluth/vigil/internal/filter"
	"github.com/dyluth/vigil/internal/overlay"
	"github.com/dyluth/vigil/pkg/statusbus"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	// OutputFormatDefault is one human-readable line per event.
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSON is line-delimited JSON.
	OutputFormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// EventStream is the read side of a status bus subscription.
type EventStream interface {
	Events() <-chan *statusbus.Event
	Errors() <-chan error
}

// Stream writes events accepted by criteria until ctx is cancelled or the
// stream ends. Subscription errors are logged and do not stop the stream.
// A nil criteria accepts everything.
func Stream(ctx context.Context, stream EventStream, criteria *filter.Criteria, format OutputFormat, w io.Writer) error {
	errs := stream.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[WARN] watch: %v", err)
		case e, ok := <-stream.Events():
			if !ok {
				return nil
			}
			if !criteria.Matches(e) {
				continue
			}
			if err := writeEvent(w, e, format); err != nil {
				return err
			}
		}
	}
}

// WriteLatest writes the stored latest event of every kind accepted by
// criteria, oldest first.
func WriteLatest(latest map[statusbus.Kind]*statusbus.Event, criteria *filter.Criteria, format OutputFormat, w io.Writer) error {
	events := make([]*statusbus.Event, 0, len(latest))
	for _, e := range latest {
		if criteria.Matches(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].At.Equal(events[j].At) {
			return events[i].Kind < events[j].Kind
		}
		return events[i].At.Before(events[j].At)
	})

	for _, e := range events {
		if err := writeEvent(w, e, format); err != nil {
			return err
		}
	}
	return nil
}

func writeEvent(w io.Writer, e *statusbus.Event, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	_, err := fmt.Fprintf(w, "[%s] %s\n", e.At.Local().Format("15:04:05"), FormatEvent(e))
	return err
}

type mediaPayload struct {
	Online bool `json:"online"`
	Track  *struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
		Status string `json:"status"`
	} `json:"track"`
}

type weatherPayload struct {
	Configured bool `json:"configured"`
	Current    *struct {
		Temp        int    `json:"temp"`
		Description string `json:"description"`
		Location    string `json:"location"`
	} `json:"current"`
}

type sysmonPayload struct {
	CPUPercent float64 `json:"cpu_percent"`
	Memory     struct {
		Percent float64 `json:"percent"`
	} `json:"memory"`
}

type editorPayload struct {
	Running  bool   `json:"running"`
	FileName string `json:"file_name"`
}

type notificationPayload struct {
	App     string `json:"app"`
	Summary string `json:"summary"`
}

type authPayload struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// FormatEvent renders an event as a single line with terminal control
// characters removed.
func FormatEvent(e *statusbus.Event) string {
	return overlay.Sanitize(formatEvent(e))
}

func formatEvent(e *statusbus.Event) string {
	switch e.Kind {
	case statusbus.KindSession:
		var p struct {
			Phase string `json:"phase"`
		}
		if decode(e, &p) {
			return fmt.Sprintf("🔒 Session %s: %s", p.Phase, shortID(e.SessionID))
		}

	case statusbus.KindMedia:
		var p mediaPayload
		if decode(e, &p) {
			if !p.Online || p.Track == nil {
				return "🎵 Media: offline"
			}
			return fmt.Sprintf("🎵 Media: %s - %s [%s]", p.Track.Title, p.Track.Artist, strings.ToLower(p.Track.Status))
		}

	case statusbus.KindWeather:
		var p weatherPayload
		if decode(e, &p) {
			switch {
			case !p.Configured:
				return "🌡 Weather: not configured"
			case p.Current == nil:
				return "🌡 Weather: no data yet"
			}
			return fmt.Sprintf("🌡 Weather: %+d° %s in %s", p.Current.Temp, p.Current.Description, p.Current.Location)
		}

	case statusbus.KindSysmon:
		var p sysmonPayload
		if decode(e, &p) {
			return fmt.Sprintf("📊 System: cpu=%.0f%% mem=%.0f%%", p.CPUPercent, p.Memory.Percent)
		}

	case statusbus.KindEditor:
		var p editorPayload
		if decode(e, &p) {
			if !p.Running {
				return "📝 Editor: not running"
			}
			return fmt.Sprintf("📝 Editor: %s", p.FileName)
		}

	case statusbus.KindNotification:
		var p notificationPayload
		if decode(e, &p) {
			return fmt.Sprintf("🔔 Notification: %s: %s", p.App, p.Summary)
		}

	case statusbus.KindAuth:
		var p authPayload
		if decode(e, &p) {
			if p.State == "failed" {
				return fmt.Sprintf("🔑 Auth: failed (attempt %d)", p.Failures)
			}
			return fmt.Sprintf("🔑 Auth: %s", p.State)
		}
	}

	return fmt.Sprintf("❓ %s: %s", e.Kind, string(e.Payload))
}

func decode(e *statusbus.Event, v any) bool {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		log.Printf("[DEBUG] watch: malformed %s payload: %v", e.Kind, err)
		return false
	}
	return true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
