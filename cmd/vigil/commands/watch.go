package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/vigil/internal/filter"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/timespec"
	"github.com/dyluth/vigil/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchInstanceName string
	watchRedisURL     string
	watchOutputFormat string
	watchNoLatest     bool
	watchSince        string
	watchUntil        string
	watchKind         string
	watchSession      string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream overlay events from the status bus",
	Long: `Print the events a lock session mirrors to Redis.

The latest event of every kind is printed first, then new events as they
arrive.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch the session on this machine
  vigil watch

  # Watch another machine's instance
  vigil watch --name desk --redis redis://nas:6379/0

  # Only unlock attempts from the last 10 minutes
  vigil watch --kind auth --since 10m

  # Export events as JSON
  vigil watch --output=json > events.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchInstanceName, "name", "n", "", "Instance name (default from config, then host name)")
	watchCmd.Flags().StringVar(&watchRedisURL, "redis", "", "Redis URL (default status_bus.redis_url from config)")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().BoolVar(&watchNoLatest, "no-latest", false, "Skip the stored latest events")
	watchCmd.Flags().StringVar(&watchSince, "since", "", "Only events after this time (duration like 10m or RFC3339)")
	watchCmd.Flags().StringVar(&watchUntil, "until", "", "Only events before this time (duration like 10m or RFC3339)")
	watchCmd.Flags().StringVar(&watchKind, "kind", "", "Only events whose kind matches this glob (e.g. auth, s*)")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "Only events of this session id or id prefix")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			err.Error(),
			[]string{"Valid formats: default, json"},
		)
	}

	since, until, err := timespec.ParseRange(watchSince, watchUntil, time.Now())
	if err != nil {
		return printer.Error(
			"invalid time range",
			err.Error(),
			[]string{"Use a duration like 10m or an RFC3339 time like 2026-02-01T23:00:00Z"},
		)
	}
	criteria := &filter.Criteria{Since: since, Until: until, KindGlob: watchKind, SessionID: watchSession}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _, err := connectBus(ctx, watchRedisURL, watchInstanceName)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()

	// Subscribe before reading the latest events so nothing falls in between
	sub, err := client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	if !watchNoLatest {
		latest, err := client.Latest(ctx)
		if err != nil {
			return fmt.Errorf("failed to read latest events: %w", err)
		}
		if err := watch.WriteLatest(latest, criteria, format, out); err != nil {
			return err
		}
	}

	return watch.Stream(ctx, sub, criteria, format, out)
}
