package media

import (
	"context"
	"log"
	"time"

	"github.com/dyluth/vigil/internal/accent"
	"github.com/jonboulle/clockwork"
)

// SourceName identifies media updates on the apply channel.
const SourceName = "media"

// Source polls the MPRIS player and resolves the accent color of its art.
// It is driven by a single poll goroutine and keeps the accent of the last
// art reference so unchanged art is not downloaded again.
type Source struct {
	bus      Bus
	art      ArtLoader
	clock    clockwork.Clock
	interval time.Duration

	lastArtRef string
	lastAccent accent.Color
	lastHasArt bool
}

// NewSource creates the media source.
func NewSource(bus Bus, art ArtLoader, clock clockwork.Clock) *Source {
	return &Source{
		bus:        bus,
		art:        art,
		clock:      clock,
		interval:   5 * time.Second,
		lastAccent: accent.Fallback,
	}
}

func (s *Source) Name() string            { return SourceName }
func (s *Source) Interval() time.Duration { return s.interval }
func (s *Source) Timeout() time.Duration  { return 4 * time.Second }

// Fetch queries the player and, when the art reference changed, loads the
// art and extracts its accent. It returns an Update.
func (s *Source) Fetch(ctx context.Context) (any, error) {
	snap, err := QueryPlayer(ctx, s.bus, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if snap == nil {
		return Update{Accent: accent.Fallback}, nil
	}

	if snap.ArtRef != s.lastArtRef {
		s.lastAccent, s.lastHasArt = s.resolveAccent(ctx, snap.ArtRef)
		// A failed load is retried on the next poll.
		if s.lastHasArt || snap.ArtRef == "" {
			s.lastArtRef = snap.ArtRef
		}
	}

	return Update{Snapshot: snap, Accent: s.lastAccent, HasArt: s.lastHasArt}, nil
}

func (s *Source) resolveAccent(ctx context.Context, ref string) (accent.Color, bool) {
	if ref == "" || s.art == nil {
		return accent.Fallback, false
	}

	img, err := s.art.Load(ctx, ref)
	if err != nil {
		log.Printf("[WARN] Album art unavailable: %v", err)
		return accent.Fallback, false
	}

	return accent.Extract(img), true
}
