package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leeforge/adminsite/config"
)

var globalFlags struct {
	configPath string
	mode       string
}

var rootCmd = &cobra.Command{
	Use:           "adminsite",
	Short:         "Plugin composed admin site",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	defaults := config.DefaultOptions()
	rootCmd.PersistentFlags().StringVarP(&globalFlags.configPath, "config", "c", defaults.BasePath, "Directory holding config.yaml")
	rootCmd.PersistentFlags().StringVar(&globalFlags.mode, "mode", string(defaults.Mode), "Config mode (dev, test, production)")

	rootCmd.AddCommand(
		newServeCmd(),
		newInspectCmd(),
		newVersionCmd(),
	)
}

// configOptions selects the config files named by the global flags.
func configOptions() config.Options {
	opts := config.DefaultOptions()
	opts.BasePath = globalFlags.configPath
	opts.Mode = config.ParseMode(globalFlags.mode)
	return opts
}

// loadConfig reads the site config selected by the global flags.
func loadConfig() (*config.SiteConfig, error) {
	cfg, _, err := config.LoadSite(configOptions())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "adminsite %s (%s)\n", version, commit)
		},
	}
}
