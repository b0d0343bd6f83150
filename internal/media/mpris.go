package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisObjectPath  = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// Bus is the subset of the D-Bus session bus the media source needs.
type Bus interface {
	// Names lists the well-known names currently on the bus.
	Names(ctx context.Context) ([]string, error)

	// PlayerProperty reads a property of org.mpris.MediaPlayer2.Player on dest.
	PlayerProperty(ctx context.Context, dest, property string) (dbus.Variant, error)
}

// SessionBus is a Bus backed by a private session bus connection that is
// opened on first use and re-opened after a failure.
type SessionBus struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// NewSessionBus returns an unconnected SessionBus.
func NewSessionBus() *SessionBus {
	return &SessionBus{}
}

func (b *SessionBus) connection(ctx context.Context) (*dbus.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && b.conn.Connected() {
		return b.conn, nil
	}

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	b.conn = conn
	return conn, nil
}

// Names implements Bus.
func (b *SessionBus) Names(ctx context.Context) ([]string, error) {
	conn, err := b.connection(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}
	return names, nil
}

// PlayerProperty implements Bus.
func (b *SessionBus) PlayerProperty(ctx context.Context, dest, property string) (dbus.Variant, error) {
	conn, err := b.connection(ctx)
	if err != nil {
		return dbus.Variant{}, err
	}

	var v dbus.Variant
	err = conn.Object(dest, mprisObjectPath).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, mprisPlayerIface, property).
		Store(&v)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s from %s: %w", property, dest, err)
	}
	return v, nil
}

// Close closes the underlying connection, if any.
func (b *SessionBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// QueryPlayer returns a snapshot of the first MPRIS player whose metadata
// and status can be read. It returns (nil, nil) when no player is running.
func QueryPlayer(ctx context.Context, bus Bus, now time.Time) (*Snapshot, error) {
	names, err := bus.Names(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if !strings.Contains(strings.ToLower(name), "mpris") {
			continue
		}

		meta, err := bus.PlayerProperty(ctx, name, "Metadata")
		if err != nil {
			continue
		}
		status, err := bus.PlayerProperty(ctx, name, "PlaybackStatus")
		if err != nil {
			continue
		}

		var position int64
		if v, err := bus.PlayerProperty(ctx, name, "Position"); err == nil {
			position, _ = variantInt64(v.Value())
		}

		metadata, _ := meta.Value().(map[string]dbus.Variant)
		statusStr, _ := status.Value().(string)
		return snapshotFromMetadata(metadata, statusStr, position, now), nil
	}

	return nil, nil
}

// snapshotFromMetadata normalises loosely typed MPRIS metadata.
func snapshotFromMetadata(meta map[string]dbus.Variant, status string, position int64, now time.Time) *Snapshot {
	s := &Snapshot{
		Title:      Placeholder,
		Artist:     Placeholder,
		Status:     ParseStatus(status),
		PositionUS: position,
		FetchedAt:  now,
	}

	if v, ok := meta["xesam:title"]; ok {
		if title, ok := v.Value().(string); ok && title != "" {
			s.Title = title
		}
	}
	if v, ok := meta["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			if len(artists) > 0 && artists[0] != "" {
				s.Artist = artists[0]
			}
		case string:
			if artists != "" {
				s.Artist = artists
			}
		}
	}
	if v, ok := meta["xesam:album"]; ok {
		s.Album, _ = v.Value().(string)
	}
	if v, ok := meta["mpris:artUrl"]; ok {
		s.ArtRef, _ = v.Value().(string)
	}
	if v, ok := meta["mpris:length"]; ok {
		s.LengthUS, _ = variantInt64(v.Value())
	}

	return s
}

// variantInt64 accepts every integer encoding players use for lengths and
// positions.
func variantInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
