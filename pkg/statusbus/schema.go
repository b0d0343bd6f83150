package statusbus

import "fmt"

// EventsChannel returns the Pub/Sub channel name for overlay events.
// Pattern: vigil:{instance_name}:events
func EventsChannel(instanceName string) string {
	return fmt.Sprintf("vigil:%s:events", instanceName)
}

// LatestKey returns the Redis key of the latest-event-per-kind hash.
// Pattern: vigil:{instance_name}:latest
func LatestKey(instanceName string) string {
	return fmt.Sprintf("vigil:%s:latest", instanceName)
}
