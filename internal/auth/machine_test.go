package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker accepts one password and records the credentials it saw.
type stubChecker struct {
	password string
	err      error
	block    chan struct{} // when set, Check waits for it to close

	calls atomic.Int32
}

func (c *stubChecker) Check(ctx context.Context, credential string) (bool, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return false, c.err
	}
	return credential == c.password, nil
}

// transitions records every observed Attempt.
type transitions struct {
	mu  sync.Mutex
	all []Attempt
}

func (tr *transitions) record(a Attempt) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.all = append(tr.all, a)
}

func (tr *transitions) snapshot() []Attempt {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Attempt(nil), tr.all...)
}

func waitForState(t *testing.T, m *Machine, want State) Attempt {
	t.Helper()
	require.Eventually(t, func() bool { return m.Attempt().State == want }, time.Second, time.Millisecond,
		"machine never reached %s", want)
	return m.Attempt()
}

func TestMachine_ThreeFailuresCountUpAndReturnToIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := &transitions{}
	m := NewMachine(&stubChecker{password: "hunter2"}, WithClock(clock), OnChange(tr.record))

	for i := 1; i <= 3; i++ {
		require.True(t, m.Submit("wrong"))

		failed := waitForState(t, m, StateFailed)
		assert.Equal(t, i, failed.Count)

		assert.False(t, m.Submit("wrong"), "submit during Failed is ignored")
		require.Eventually(t, func() bool { return len(tr.snapshot()) == 3*i-1 }, time.Second, time.Millisecond)

		clock.Advance(FailureDelay)
		idle := waitForState(t, m, StateIdle)
		assert.Equal(t, i, idle.Count)
		require.Eventually(t, func() bool { return len(tr.snapshot()) == 3*i }, time.Second, time.Millisecond)
	}

	assert.Equal(t, []Attempt{
		{Count: 0, State: StateChecking, Seq: 1}, {Count: 1, State: StateFailed, Seq: 2}, {Count: 1, State: StateIdle, Seq: 3},
		{Count: 1, State: StateChecking, Seq: 4}, {Count: 2, State: StateFailed, Seq: 5}, {Count: 2, State: StateIdle, Seq: 6},
		{Count: 2, State: StateChecking, Seq: 7}, {Count: 3, State: StateFailed, Seq: 8}, {Count: 3, State: StateIdle, Seq: 9},
	}, tr.snapshot())
}

func TestMachine_FailedWaitsForDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewMachine(&stubChecker{password: "hunter2"}, WithClock(clock))

	require.True(t, m.Submit("wrong"))
	waitForState(t, m, StateFailed)

	clock.Advance(FailureDelay - time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateFailed, m.Attempt().State)

	clock.Advance(time.Millisecond)
	waitForState(t, m, StateIdle)
}

func TestMachine_SuccessTerminatesAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	terminated := make(chan struct{})
	m := NewMachine(&stubChecker{password: "hunter2"}, WithClock(clock),
		OnTerminate(func() { close(terminated) }))

	require.True(t, m.Submit("hunter2"))
	waitForState(t, m, StateSuccess)

	select {
	case <-terminated:
		t.Fatal("terminated before the success delay")
	case <-time.After(10 * time.Millisecond):
	}

	assert.False(t, m.Submit("hunter2"), "submit after success is ignored")

	clock.Advance(SuccessDelay)
	select {
	case <-terminated:
	case <-time.After(time.Second):
		t.Fatal("session was not terminated")
	}
	assert.Equal(t, Attempt{Count: 0, State: StateSuccess, Seq: 2}, m.Attempt())
}

func TestMachine_SubmitWhileCheckingIsIgnored(t *testing.T) {
	checker := &stubChecker{password: "hunter2", block: make(chan struct{})}
	m := NewMachine(checker, WithClock(clockwork.NewFakeClock()))

	require.True(t, m.Submit("hunter2"))
	assert.Equal(t, StateChecking, m.Attempt().State)
	assert.False(t, m.Submit("hunter2"))
	assert.False(t, m.Submit("other"))

	close(checker.block)
	waitForState(t, m, StateSuccess)
	assert.Equal(t, int32(1), checker.calls.Load(), "exactly one check in flight")
}

func TestMachine_TimeoutIsFailure(t *testing.T) {
	checker := &stubChecker{password: "hunter2", block: make(chan struct{})}
	defer close(checker.block)

	m := NewMachine(checker, WithClock(clockwork.NewFakeClock()), WithCheckTimeout(20*time.Millisecond))

	require.True(t, m.Submit("hunter2"))
	failed := waitForState(t, m, StateFailed)
	assert.Equal(t, 1, failed.Count)
}

func TestMachine_MechanismUnavailableFailsClosed(t *testing.T) {
	checker := &stubChecker{password: "hunter2", err: ErrMechanismUnavailable}
	m := NewMachine(checker, WithClock(clockwork.NewFakeClock()))

	require.True(t, m.Submit("hunter2"))
	failed := waitForState(t, m, StateFailed)
	assert.Equal(t, 1, failed.Count)
}

// holdingChecker rejects every credential except hold, whose check stays in
// flight until release is closed.
type holdingChecker struct {
	hold    string
	release chan struct{}
}

func (c *holdingChecker) Check(ctx context.Context, credential string) (bool, error) {
	if credential != c.hold {
		return false, nil
	}
	select {
	case <-c.release:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestMachine_SeqOrdersDelayedObservers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := &holdingChecker{hold: "hunter2", release: make(chan struct{})}
	defer close(checker.release)

	tr := &transitions{}
	idleGate := make(chan struct{})
	observe := func(a Attempt) {
		if a.State == StateIdle {
			<-idleGate
		}
		tr.record(a)
	}
	m := NewMachine(checker, WithClock(clock), WithCheckTimeout(time.Minute), OnChange(observe))

	require.True(t, m.Submit("wrong"))
	waitForState(t, m, StateFailed)
	require.Eventually(t, func() bool { return len(tr.snapshot()) == 2 }, time.Second, time.Millisecond)

	// The Idle observer is held while the next attempt starts.
	go clock.Advance(FailureDelay)
	waitForState(t, m, StateIdle)
	require.True(t, m.Submit("hunter2"))
	require.Eventually(t, func() bool { return len(tr.snapshot()) == 3 }, time.Second, time.Millisecond)

	close(idleGate)
	require.Eventually(t, func() bool { return len(tr.snapshot()) == 4 }, time.Second, time.Millisecond)

	observed := tr.snapshot()
	assert.Equal(t, StateIdle, observed[3].State, "idle arrives after checking")

	newest := observed[0]
	for _, a := range observed[1:] {
		if a.Newer(newest) {
			newest = a
		}
	}
	assert.Equal(t, m.Attempt(), newest)
	assert.Equal(t, StateChecking, newest.State)
	assert.Equal(t, uint64(4), newest.Seq)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "checking", StateChecking.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
