// Package statusbus mirrors a lock session's overlay state to Redis so other
// processes can observe it.
//
// # Overview
//
// While a session is locked, every update applied to the overlay (new media
// snapshot, weather, system sample, editor state, notification, unlock
// attempt) is summarised as an Event and published on a Pub/Sub channel. The
// latest event of each kind is also kept in a hash so a late subscriber can
// show the current state before the next update arrives.
//
// Publishing never happens on the overlay's apply path. The overlay hands
// events to a Mirror through a bounded channel; when Redis is slow the
// channel fills and further events are dropped and counted.
//
// # Redis Schema
//
// All keys and channels are namespaced by instance name (the host name by
// default) so several machines can share one Redis server.
//
// Events channel: vigil:{instance_name}:events
// Latest state:   vigil:{instance_name}:latest (hash, field = event kind)
//
// # Usage Example
//
//	client, err := statusbus.NewClientFromURL("redis://localhost:6379/0", "workstation")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sub, err := client.Subscribe(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	for event := range sub.Events() {
//		fmt.Println(event.Kind, string(event.Payload))
//	}
package statusbus
