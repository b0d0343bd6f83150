package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/pkg/statusbus"
)

// connectBus opens the status bus named by the flags, falling back to the
// config file, and checks Redis is reachable. Errors are already printed.
func connectBus(ctx context.Context, redisURL, instanceName string) (*statusbus.Client, string, error) {
	bus := loadConfig().StatusBus
	if redisURL != "" {
		bus.RedisURL = redisURL
	}
	if instanceName != "" {
		bus.Instance = instanceName
	}
	if bus.RedisURL == "" {
		return nil, "", printer.Error(
			"status bus not configured",
			"No Redis URL in the config file and no --redis flag.",
			[]string{
				"Pass one:\n  vigil watch --redis redis://localhost:6379/0",
				"Set status_bus.redis_url in the config:\n  vigil config path",
			},
		)
	}

	name, err := busInstance(bus)
	if err != nil {
		return nil, "", printer.Error(
			"invalid instance name",
			err.Error(),
			[]string{"Use lowercase letters, digits and hyphens:\n  vigil watch --name desk"},
		)
	}

	client, err := statusbus.NewClientFromURL(bus.RedisURL, name)
	if err != nil {
		return nil, "", printer.Error("invalid Redis URL", err.Error(), nil)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, "", printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", bus.RedisURL),
			map[string]string{"Instance": name, "Error": err.Error()},
			[]string{"Check that Redis is running and reachable from this machine."},
		)
	}

	return client, name, nil
}
