package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(i int) Event {
	return Event{
		App:       fmt.Sprintf("app-%d", i),
		Summary:   fmt.Sprintf("summary %d", i),
		Timestamp: time.Date(2026, 1, 1, 12, i, 0, 0, time.UTC),
	}
}

func apps(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.App
	}
	return out
}

func TestRing_Empty(t *testing.T) {
	var r Ring
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())
	assert.Empty(t, r.Recent(DisplayCount))
}

func TestRing_BelowCapacity(t *testing.T) {
	var r Ring
	r.Append(event(1))
	r.Append(event(2))

	assert.Equal(t, []string{"app-1", "app-2"}, apps(r.All()))
	assert.Equal(t, []string{"app-2", "app-1"}, apps(r.Recent(DisplayCount)))
}

func TestRing_SixAppendsKeepLastFive(t *testing.T) {
	var r Ring
	for i := 1; i <= 6; i++ {
		r.Append(event(i))
	}

	require.Equal(t, Capacity, r.Len())
	assert.Equal(t, []string{"app-2", "app-3", "app-4", "app-5", "app-6"}, apps(r.All()))
	assert.Equal(t, []string{"app-6", "app-5", "app-4"}, apps(r.Recent(DisplayCount)))
}

func TestRing_ManyWraps(t *testing.T) {
	var r Ring
	for i := 1; i <= 23; i++ {
		r.Append(event(i))
	}

	assert.Equal(t, []string{"app-19", "app-20", "app-21", "app-22", "app-23"}, apps(r.All()))
	assert.Equal(t, []string{"app-23", "app-22", "app-21", "app-20", "app-19"}, apps(r.Recent(10)))
}

func TestRing_RecentNonPositive(t *testing.T) {
	var r Ring
	r.Append(event(1))
	assert.Nil(t, r.Recent(0))
	assert.Nil(t, r.Recent(-1))
}
