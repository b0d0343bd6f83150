package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/vigil/internal/filter"
	"github.com/dyluth/vigil/internal/notify"
	"github.com/dyluth/vigil/internal/sysmon"
	"github.com/dyluth/vigil/internal/weather"
	"github.com/dyluth/vigil/pkg/statusbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionID = uuid.New().String()

func event(t *testing.T, kind statusbus.Kind, at time.Time, payload any) *statusbus.Event {
	t.Helper()
	e, err := statusbus.NewEvent(sessionID, kind, at, payload)
	require.NoError(t, err)
	return e
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 2, 1, 23, 5, 0, 0, time.UTC)

	tests := []struct {
		name     string
		kind     statusbus.Kind
		payload  any
		expected string
	}{
		{
			name:     "session",
			kind:     statusbus.KindSession,
			payload:  map[string]string{"phase": "locked"},
			expected: "🔒 Session locked: " + sessionID[:8],
		},
		{
			name: "media playing",
			kind: statusbus.KindMedia,
			payload: map[string]any{
				"online": true,
				"track":  map[string]any{"title": "Windowlicker", "artist": "Aphex Twin", "status": "Playing"},
			},
			expected: "🎵 Media: Windowlicker - Aphex Twin [playing]",
		},
		{
			name:     "media offline",
			kind:     statusbus.KindMedia,
			payload:  map[string]any{"online": false, "accent": "#1db954"},
			expected: "🎵 Media: offline",
		},
		{
			name:     "weather not configured",
			kind:     statusbus.KindWeather,
			payload:  weather.Update{},
			expected: "🌡 Weather: not configured",
		},
		{
			name: "weather",
			kind: statusbus.KindWeather,
			payload: weather.Update{
				Configured: true,
				Current:    &weather.Current{Temp: -3, Description: "Light snow", Location: "Berlin"},
			},
			expected: "🌡 Weather: -3° Light snow in Berlin",
		},
		{
			name:     "sysmon",
			kind:     statusbus.KindSysmon,
			payload:  &sysmon.Snapshot{CPUPercent: 12.4, Memory: sysmon.Usage{Percent: 55.6}},
			expected: "📊 System: cpu=12% mem=56%",
		},
		{
			name:     "editor",
			kind:     statusbus.KindEditor,
			payload:  map[string]any{"running": true, "file_name": "main.go"},
			expected: "📝 Editor: main.go",
		},
		{
			name:     "notification",
			kind:     statusbus.KindNotification,
			payload:  notify.Event{App: "Telegram", Summary: "Ana", Timestamp: at},
			expected: "🔔 Notification: Telegram: Ana",
		},
		{
			name:     "auth failed",
			kind:     statusbus.KindAuth,
			payload:  map[string]any{"state": "failed", "failures": 2},
			expected: "🔑 Auth: failed (attempt 2)",
		},
		{
			name:     "auth checking",
			kind:     statusbus.KindAuth,
			payload:  map[string]any{"state": "checking", "failures": 0},
			expected: "🔑 Auth: checking",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatEvent(event(t, tt.kind, at, tt.payload)))
		})
	}
}

func TestFormatEvent_MalformedPayload(t *testing.T) {
	e := &statusbus.Event{SessionID: sessionID, Kind: statusbus.KindAuth, At: time.Now(), Payload: json.RawMessage(`"oops"`)}
	assert.Equal(t, `❓ auth: "oops"`, FormatEvent(e))
}

func TestFormatEvent_StripsTerminalControls(t *testing.T) {
	e := event(t, statusbus.KindNotification, time.Now(),
		notify.Event{App: "App\u009b", Summary: "hi\x1b[2J\x1b]0;pwned\x07\nbye"})

	line := FormatEvent(e)
	assert.Equal(t, "🔔 Notification: App: hi[2J]0;pwned bye", line)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestWriteLatest_OldestFirst(t *testing.T) {
	now := time.Now()
	latest := map[statusbus.Kind]*statusbus.Event{
		statusbus.KindAuth:    event(t, statusbus.KindAuth, now, map[string]any{"state": "idle"}),
		statusbus.KindSession: event(t, statusbus.KindSession, now.Add(-time.Minute), map[string]string{"phase": "locked"}),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLatest(latest, nil, OutputFormatDefault, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Session locked")
	assert.Contains(t, lines[1], "Auth: idle")
}

type fakeStream struct {
	events chan *statusbus.Event
	errors chan error
}

func (s *fakeStream) Events() <-chan *statusbus.Event { return s.events }
func (s *fakeStream) Errors() <-chan error            { return s.errors }

func TestStream_JSONUntilClosed(t *testing.T) {
	stream := &fakeStream{events: make(chan *statusbus.Event, 2), errors: make(chan error, 1)}
	stream.errors <- errors.New("failed to unmarshal event")
	stream.events <- event(t, statusbus.KindEditor, time.Now(), map[string]any{"running": false})
	close(stream.events)

	var buf bytes.Buffer
	require.NoError(t, Stream(context.Background(), stream, nil, OutputFormatJSON, &buf))

	var got statusbus.Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got))
	assert.Equal(t, statusbus.KindEditor, got.Kind)
	assert.Equal(t, sessionID, got.SessionID)
}

func TestStream_StopsOnCancel(t *testing.T) {
	stream := &fakeStream{events: make(chan *statusbus.Event), errors: make(chan error)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.NoError(t, Stream(ctx, stream, nil, OutputFormatDefault, &buf))
	assert.Empty(t, buf.String())
}

func TestStream_AppliesCriteria(t *testing.T) {
	stream := &fakeStream{events: make(chan *statusbus.Event, 3), errors: make(chan error)}
	now := time.Now()
	stream.events <- event(t, statusbus.KindSysmon, now, &sysmon.Snapshot{CPUPercent: 1})
	stream.events <- event(t, statusbus.KindAuth, now, map[string]any{"state": "success"})
	stream.events <- event(t, statusbus.KindAuth, now.Add(-time.Hour), map[string]any{"state": "failed", "failures": 1})
	close(stream.events)

	criteria := &filter.Criteria{KindGlob: "auth", Since: now.Add(-time.Minute)}

	var buf bytes.Buffer
	require.NoError(t, Stream(context.Background(), stream, criteria, OutputFormatDefault, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "🔑 Auth: success")
}
