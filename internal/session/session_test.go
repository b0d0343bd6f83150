package session

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/editor"
	"github.com/dyluth/vigil/internal/notify"
	"github.com/dyluth/vigil/pkg/statusbus"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type passwordChecker struct {
	password string
	calls    atomic.Int32
}

func (c *passwordChecker) Check(ctx context.Context, credential string) (bool, error) {
	c.calls.Add(1)
	return credential == c.password, nil
}

type editorSource struct{}

func (editorSource) Name() string            { return editor.SourceName }
func (editorSource) Interval() time.Duration { return time.Hour }
func (editorSource) Timeout() time.Duration  { return time.Second }
func (editorSource) Fetch(ctx context.Context) (any, error) {
	return editor.Snapshot{Running: true, FileName: "main.go"}, nil
}

type captureMirror struct {
	mu     sync.Mutex
	phases []string
}

func (m *captureMirror) Offer(e *statusbus.Event) bool {
	if e.Kind != statusbus.KindSession {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases = append(m.phases, string(e.Payload))
	return true
}

func testOptions(t *testing.T, input io.Reader, out io.Writer, checker *passwordChecker) Options {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	cfg := config.Default()
	cfg.ShowWeather = false
	return Options{
		Config:    cfg,
		SessionID: uuid.New().String(),
		Sources:   nil,
		Checker:   checker,
		Input:     input,
		Output:    out,
	}
}

func TestRun_UnlocksWithCorrectPassword(t *testing.T) {
	out := &syncBuffer{}
	checker := &passwordChecker{password: "secret"}
	mirror := &captureMirror{}

	opts := testOptions(t, strings.NewReader("secret\r"), out, checker)
	opts.Sources = append(opts.Sources, editorSource{})
	opts.Mirror = mirror

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, Run(ctx, opts))

	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond, "success is shown before the session ends")
	assert.Equal(t, int32(1), checker.calls.Load())
	assert.Contains(t, out.String(), "unlocked")
	assert.Contains(t, out.String(), "EDITOR  main.go")
	assert.Equal(t, []string{`{"phase":"locked"}`, `{"phase":"unlocked"}`}, mirror.phases)
}

func TestRun_WrongPasswordThenRight(t *testing.T) {
	out := &syncBuffer{}
	checker := &passwordChecker{password: "secret"}
	pr, pw := io.Pipe()
	defer pw.Close()

	opts := testOptions(t, pr, out, checker)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	_, err := pw.Write([]byte("nope\r"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "wrong password (attempt 1)")
	}, 3*time.Second, 10*time.Millisecond)

	// Back to idle after the failure delay
	require.Eventually(t, func() bool {
		s := out.String()
		return strings.LastIndex(s, "password: ") > strings.LastIndex(s, "wrong password")
	}, 3*time.Second, 10*time.Millisecond)

	_, err = pw.Write([]byte("secret\r"))
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not unlock")
	}
	assert.Equal(t, int32(2), checker.calls.Load())
}

func TestRun_CancelledWithoutUnlock(t *testing.T) {
	out := &syncBuffer{}
	checker := &passwordChecker{password: "secret"}

	opts := testOptions(t, strings.NewReader(""), out, checker)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, Run(ctx, opts), ErrCancelled)
	assert.Zero(t, checker.calls.Load())
	assert.Contains(t, out.String(), "password: ")
}

func TestRun_NotificationsReachOverlay(t *testing.T) {
	out := &syncBuffer{}
	checker := &passwordChecker{password: "secret"}

	opts := testOptions(t, strings.NewReader(""), out, checker)
	opts.Notifications = func(ctx context.Context, post func(notify.Event)) error {
		post(notify.Event{App: "Telegram", Summary: "Ana", Timestamp: time.Now()})
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Telegram: Ana")
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, ErrCancelled)
}
