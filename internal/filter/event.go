// Package filter selects status bus events for the watch command.
package filter

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/vigil/pkg/statusbus"
)

// Criteria are ANDed together; a zero field matches everything.
type Criteria struct {
	Since     time.Time // events before this are skipped
	Until     time.Time // events after this are skipped
	KindGlob  string    // glob over the event kind, e.g. "auth" or "s*"
	SessionID string    // full session id or a prefix of it
}

// Matches reports whether e passes every criterion. A nil Criteria matches
// all events.
func (c *Criteria) Matches(e *statusbus.Event) bool {
	if c == nil {
		return true
	}

	if !c.Since.IsZero() && e.At.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && e.At.After(c.Until) {
		return false
	}

	if c.KindGlob != "" {
		matched, err := filepath.Match(c.KindGlob, string(e.Kind))
		if err != nil || !matched {
			return false
		}
	}

	if c.SessionID != "" && !strings.HasPrefix(e.SessionID, c.SessionID) {
		return false
	}

	return true
}

// HasFilters reports whether any criterion is set.
func (c *Criteria) HasFilters() bool {
	return c != nil && (!c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.KindGlob != "" ||
		c.SessionID != "")
}
