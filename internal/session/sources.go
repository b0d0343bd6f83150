package session

import (
	"log"
	"net/http"
	"time"

	"github.com/dyluth/vigil/internal/background"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/editor"
	"github.com/dyluth/vigil/internal/media"
	"github.com/dyluth/vigil/internal/poller"
	"github.com/dyluth/vigil/internal/sysmon"
	"github.com/dyluth/vigil/internal/ttlcache"
	"github.com/dyluth/vigil/internal/weather"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// EditorProcess is the process name the editor widget looks for.
const EditorProcess = "codium"

// HostSources are the sources of a session on the local machine.
type HostSources struct {
	Sources []poller.Source
	Cache   *ttlcache.Counters

	closers []func() error
}

// Close releases bus connections held by the sources and logs cache counters.
func (h *HostSources) Close() {
	for _, c := range h.closers {
		if err := c(); err != nil {
			log.Printf("[DEBUG] Failed to close source: %v", err)
		}
	}
	log.Printf("[DEBUG] Cache hits=%d misses=%d stale_serves=%d",
		h.Cache.Hits.Load(), h.Cache.Misses.Load(), h.Cache.StaleServes.Load())
}

// NewHostSources builds one source per enabled widget. The background source
// is always present.
func NewHostSources(cfg *config.Config, fs afero.Fs, homeDir string, clock clockwork.Clock) *HostSources {
	h := &HostSources{Cache: &ttlcache.Counters{}}
	observe := ttlcache.WithObserver(h.Cache)
	httpClient := &http.Client{Timeout: 10 * time.Second}

	h.Sources = append(h.Sources, background.NewSource(cfg, fs, clock))

	if cfg.ShowMedia {
		bus := media.NewSessionBus()
		h.closers = append(h.closers, bus.Close)
		h.Sources = append(h.Sources, media.NewSource(bus, media.NewArtFetcher(httpClient, fs), clock))
	}

	if cfg.ShowWeather {
		client := weather.NewClient(cfg.WeatherBaseURL, httpClient)
		req := weather.Request{City: cfg.WeatherCity, APIKey: cfg.WeatherAPIKey, Language: cfg.Language}
		h.Sources = append(h.Sources, weather.NewSource(client, req, clock, observe))
	}

	if cfg.ShowSysmon {
		h.Sources = append(h.Sources, sysmon.NewSource(sysmon.NewHostProbe(), clock, observe))
	}

	if cfg.ShowEditor {
		h.Sources = append(h.Sources, editor.NewSource(fs, editor.Pgrep{Name: EditorProcess}, cfg.EditorProjectPath, homeDir))
	}

	return h
}
