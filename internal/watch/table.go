package watch

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dyluth/vigil/pkg/statusbus"
)

// FormatTable writes the latest event of each kind as a table and returns
// the number of rows written. Ages are relative to now.
func FormatTable(w io.Writer, latest map[statusbus.Kind]*statusbus.Event, instanceName string, now time.Time) int {
	if len(latest) == 0 {
		fmt.Fprintf(w, "No status published for instance '%s'\n", instanceName)
		return 0
	}

	events := make([]*statusbus.Event, 0, len(latest))
	for _, e := range latest {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Kind < events[j].Kind })

	fmt.Fprintf(w, "Status for instance '%s':\n\n", instanceName)
	fmt.Fprintf(w, "%-13s %-8s %-9s %s\n", "KIND", "AGE", "SESSION", "SUMMARY")
	fmt.Fprintf(w, "%-13s %-8s %-9s %s\n", "-------------", "--------", "---------", "----------------------------------------")

	for _, e := range events {
		fmt.Fprintf(w, "%-13s %-8s %-9s %s\n",
			e.Kind,
			formatAge(e.At, now),
			shortID(e.SessionID),
			FormatEvent(e),
		)
	}

	return len(events)
}

// formatAge renders the time since at as "12s ago", "3m ago", "2h ago" or
// "4d ago".
func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "-"
	}

	diff := now.Sub(at)
	if diff < 0 {
		diff = 0
	}

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
