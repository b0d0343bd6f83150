package background

import (
	"context"
	"time"

	"github.com/dyluth/vigil/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// SourceName identifies background updates on the apply channel.
const SourceName = "background"

// Source re-resolves the background once a minute so period changes and
// images appearing or disappearing on disk are picked up. The file checks
// stay off the apply context.
type Source struct {
	cfg   *config.Config
	fs    afero.Fs
	clock clockwork.Clock
}

// NewSource creates the background source.
func NewSource(cfg *config.Config, fs afero.Fs, clock clockwork.Clock) *Source {
	return &Source{cfg: cfg, fs: fs, clock: clock}
}

func (s *Source) Name() string            { return SourceName }
func (s *Source) Interval() time.Duration { return time.Minute }
func (s *Source) Timeout() time.Duration  { return 2 * time.Second }

// Fetch returns the Selection for the current local hour.
func (s *Source) Fetch(ctx context.Context) (any, error) {
	return Resolve(s.cfg, s.clock.Now().Local().Hour(), s.fs), nil
}
