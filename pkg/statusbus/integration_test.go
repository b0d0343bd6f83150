//go:build integration

package statusbus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns its URL.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

func TestIntegration_MirrorToWatcher(t *testing.T) {
	redisURL := setupRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	publisher, err := NewClientFromURL(redisURL, "desk")
	require.NoError(t, err)
	defer publisher.Close()

	watcher, err := NewClientFromURL(redisURL, "desk")
	require.NoError(t, err)
	defer watcher.Close()

	sub, err := watcher.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mirror := NewMirror(publisher, 8)
	session := testEvent(t, KindSession, map[string]string{"phase": "locked"})
	auth := testEvent(t, KindAuth, map[string]any{"state": "checking", "failures": 0})
	require.True(t, mirror.Offer(session))
	require.True(t, mirror.Offer(auth))
	mirror.Flush(ctx)

	var kinds []Kind
	for len(kinds) < 2 {
		select {
		case e := <-sub.Events():
			kinds = append(kinds, e.Kind)
		case err := <-sub.Errors():
			t.Fatalf("subscription error: %v", err)
		case <-ctx.Done():
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []Kind{KindSession, KindAuth}, kinds)

	latest, err := watcher.Latest(ctx)
	require.NoError(t, err)
	require.Contains(t, latest, KindAuth)
	assert.Equal(t, session.SessionID, latest[KindSession].SessionID)

	published, dropped, failed := mirror.Stats()
	assert.Equal(t, int64(2), published)
	assert.Zero(t, dropped)
	assert.Zero(t, failed)
}
