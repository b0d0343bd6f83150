package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceConfigInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the vigil configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the default configuration to the config path.

An existing file is left alone unless --force is given.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration vigil would use, with defaults filled in.
The weather API key is masked.`,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), resolvedConfigPath())
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceConfigInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()

	if !forceConfigInit {
		if _, err := os.Stat(path); err == nil {
			return printer.Error(
				"config file already exists",
				fmt.Sprintf("Found %s", path),
				[]string{
					"Inspect it:\n  vigil config show",
					"Replace it with the defaults:\n  vigil config init --force",
				},
			)
		}
	}

	if err := config.Save(path, config.Default()); err != nil {
		return printer.ErrorWithContext(
			"cannot write config file",
			err.Error(),
			map[string]string{"Path": path},
			nil,
		)
	}

	printer.Success("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.WeatherAPIKey != "" {
		cfg.WeatherAPIKey = "********"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
