package commands

import (
	"fmt"

	"github.com/dyluth/vigil/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "vigil - lock-session status overlay",
	Long: `vigil shows a live status overlay while the session is locked: clock,
now playing, weather, system load, recent notifications and the file you were
editing, above a password prompt.

Every widget is fed by its own poller so a slow or failing source never holds
up the others or the unlock prompt.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Cobra's own error printing is silenced;
// commands print coloured errors through the printer package.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "", "Config file (default $XDG_CONFIG_HOME/vigil/config.yml)")
}

// resolvedConfigPath returns --config or the default location.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// loadConfig loads the configuration; problems fall back to defaults.
func loadConfig() *config.Config {
	return config.Load(resolvedConfigPath())
}
