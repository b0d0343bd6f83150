package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/vigil/internal/background"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var backgroundHour int

var backgroundCmd = &cobra.Command{
	Use:   "background",
	Short: "Print the background the overlay would use",
	Long: `Resolve the background image and dim level for the current local hour,
or for --hour.

Examples:
  vigil background
  vigil background --hour 23`,
	RunE: runBackground,
}

func init() {
	backgroundCmd.Flags().IntVar(&backgroundHour, "hour", -1, "Resolve for this hour (0-23) instead of now")
	rootCmd.AddCommand(backgroundCmd)
}

func runBackground(cmd *cobra.Command, args []string) error {
	hour := backgroundHour
	if hour < 0 {
		hour = time.Now().Hour()
	}
	if hour > 23 {
		return printer.Error(
			"invalid hour",
			fmt.Sprintf("--hour must be between 0 and 23, got %d", hour),
			nil,
		)
	}

	sel := background.Resolve(loadConfig(), hour, afero.NewOsFs())

	out := cmd.OutOrStdout()
	period := string(sel.Period)
	if period == "" {
		period = "static"
	}
	path := sel.Path
	if path == "" {
		path = "(none)"
	}
	fmt.Fprintf(out, "hour:   %d\n", hour)
	fmt.Fprintf(out, "period: %s\n", period)
	fmt.Fprintf(out, "image:  %s\n", path)
	fmt.Fprintf(out, "dim:    %.2f\n", sel.Dim)
	return nil
}
