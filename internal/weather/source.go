package weather

import (
	"context"
	"time"

	"github.com/dyluth/vigil/internal/ttlcache"
	"github.com/jonboulle/clockwork"
)

// SourceName identifies weather updates on the apply channel.
const SourceName = "weather"

// CacheTTL is how long a successful provider response is reused.
const CacheTTL = 10 * time.Minute

// Update is posted to the apply context after every weather poll.
type Update struct {
	Configured bool      `json:"configured"`         // false when no API key or city is set
	Current    *Current  `json:"current,omitempty"`  // nil until the first successful fetch
	Forecast   *Forecast `json:"forecast,omitempty"` // nil until the first successful fetch
}

// Provider is the subset of Client used by Source.
type Provider interface {
	Current(ctx context.Context, req Request) (*Current, error)
	Tomorrow(ctx context.Context, req Request) (*Forecast, error)
}

// Source polls the provider through two stale-serve caches. It is owned by
// one poll goroutine.
type Source struct {
	provider Provider
	request  Request

	current  *ttlcache.Cache[*Current]
	forecast *ttlcache.Cache[*Forecast]
}

// NewSource creates the weather source.
func NewSource(provider Provider, req Request, clock clockwork.Clock, opts ...ttlcache.Option) *Source {
	opts = append([]ttlcache.Option{ttlcache.WithClock(clock)}, opts...)
	return &Source{
		provider: provider,
		request:  req,
		current:  ttlcache.New[*Current]("weather.current", CacheTTL, opts...),
		forecast: ttlcache.New[*Forecast]("weather.forecast", CacheTTL, opts...),
	}
}

func (s *Source) Name() string            { return SourceName }
func (s *Source) Interval() time.Duration { return 5 * time.Second }
func (s *Source) Timeout() time.Duration  { return 2*requestTimeout + time.Second }

// Fetch returns an Update. Provider failures never surface as errors: the
// caches keep serving the last good values.
func (s *Source) Fetch(ctx context.Context) (any, error) {
	if s.request.APIKey == "" || s.request.City == "" {
		return Update{Configured: false}, nil
	}

	current, _ := s.current.GetOrRefresh(ctx, func(ctx context.Context) (*Current, error) {
		return s.provider.Current(ctx, s.request)
	})
	forecast, _ := s.forecast.GetOrRefresh(ctx, func(ctx context.Context) (*Forecast, error) {
		return s.provider.Tomorrow(ctx, s.request)
	})

	return Update{Configured: true, Current: current, Forecast: forecast}, nil
}
