package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/vigil/internal/watch"
	"github.com/spf13/cobra"
)

var (
	statusInstanceName string
	statusRedisURL     string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest overlay state from the status bus",
	Long: `Print the most recent event of every kind a lock session published,
as a table.

Examples:
  vigil status
  vigil status --name desk --redis redis://nas:6379/0`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusInstanceName, "name", "n", "", "Instance name (default from config, then host name)")
	statusCmd.Flags().StringVar(&statusRedisURL, "redis", "", "Redis URL (default status_bus.redis_url from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, name, err := connectBus(ctx, statusRedisURL, statusInstanceName)
	if err != nil {
		return err
	}
	defer client.Close()

	latest, err := client.Latest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest events: %w", err)
	}

	watch.FormatTable(cmd.OutOrStdout(), latest, name, time.Now())
	return nil
}
