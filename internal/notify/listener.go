package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"
	"github.com/jonboulle/clockwork"
)

const (
	notificationsInterface = "org.freedesktop.Notifications"
	notifyMember           = "Notify"
	monitorRule            = "type='method_call',interface='org.freedesktop.Notifications',member='Notify'"
)

// Listener eavesdrops Notify calls on the session bus.
type Listener struct {
	clock clockwork.Clock
}

// NewListener creates a Listener that stamps events with clock.Now().
func NewListener(clock clockwork.Clock) *Listener {
	return &Listener{clock: clock}
}

// Listen connects to the session bus, becomes a monitor for Notify calls and
// hands every parsed event to post until ctx is cancelled.
//
// post is called from the listener goroutine; callers forward the event to
// the apply context rather than touching shared state directly.
func (l *Listener) Listen(ctx context.Context, post func(Event)) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	call := conn.BusObject().CallWithContext(ctx,
		"org.freedesktop.DBus.Monitoring.BecomeMonitor", 0,
		[]string{monitorRule}, uint32(0))
	if call.Err != nil {
		return fmt.Errorf("failed to become notification monitor: %w", call.Err)
	}

	messages := make(chan *dbus.Message, 16)
	conn.Eavesdrop(messages)

	log.Printf("[INFO] Notification listener started")

	for {
		select {
		case <-ctx.Done():
			log.Printf("[DEBUG] Notification listener received shutdown signal")
			return nil

		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("session bus connection closed")
			}
			if ev, ok := EventFromMessage(msg, l.clock); ok {
				post(ev)
			}
		}
	}
}

// EventFromMessage converts a Notify method call into an Event. Messages
// that are not well-formed Notify calls are rejected.
func EventFromMessage(msg *dbus.Message, clock clockwork.Clock) (Event, bool) {
	if msg == nil || msg.Type != dbus.TypeMethodCall {
		return Event{}, false
	}
	if headerString(msg, dbus.FieldMember) != notifyMember {
		return Event{}, false
	}
	if iface := headerString(msg, dbus.FieldInterface); iface != "" && iface != notificationsInterface {
		return Event{}, false
	}

	// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, timeout)
	if len(msg.Body) < 5 {
		return Event{}, false
	}

	return Event{
		App:       fmt.Sprint(msg.Body[0]),
		Summary:   fmt.Sprint(msg.Body[3]),
		Body:      fmt.Sprint(msg.Body[4]),
		Timestamp: clock.Now(),
	}, true
}

func headerString(msg *dbus.Message, field dbus.HeaderField) string {
	v, ok := msg.Headers[field]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}
