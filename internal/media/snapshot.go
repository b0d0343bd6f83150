// Package media reads the active MPRIS player, fetches its album art and
// extrapolates playback progress between polls.
package media

import (
	"fmt"
	"time"

	"github.com/dyluth/vigil/internal/accent"
)

// Status is the normalised MPRIS PlaybackStatus.
type Status string

const (
	StatusPlaying Status = "Playing"
	StatusPaused  Status = "Paused"
	StatusStopped Status = "Stopped"
)

// ParseStatus maps an MPRIS status string. Anything unknown is Stopped.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPlaying:
		return StatusPlaying
	case StatusPaused:
		return StatusPaused
	default:
		return StatusStopped
	}
}

// Placeholder shown for a missing title or artist.
const Placeholder = "—"

// Snapshot is one poll of the media player.
type Snapshot struct {
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album"`
	Status     Status    `json:"status"`
	PositionUS int64     `json:"position_us"`
	LengthUS   int64     `json:"length_us"`
	ArtRef     string    `json:"art_ref"`
	FetchedAt  time.Time `json:"-"` // monotonic instant of the poll
}

// Playing reports whether the player is currently playing.
func (s *Snapshot) Playing() bool {
	return s.Status == StatusPlaying
}

// Update is what the media unit posts to the apply context: the snapshot and
// the accent color derived from its album art, delivered together.
type Update struct {
	Snapshot *Snapshot    // nil when no player is running
	Accent   accent.Color // accent.Fallback when there is no usable art
	HasArt   bool
}

// FormatTime renders microseconds as m:ss.
func FormatTime(us int64) string {
	if us < 0 {
		us = 0
	}
	s := us / 1_000_000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
