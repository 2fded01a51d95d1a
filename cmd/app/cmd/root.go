package cmd

import (
	"os"

	"LevRecon/pkg/config"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "levrecon",
	Short: "Margin tier reconciliation across derivatives venues",
	Long: `levrecon normalizes the leverage and maintenance-margin tiers published by
several venues, compares them at fixed notional thresholds and proposes a
house schedule for every classified symbol.

Run "levrecon serve" for the streaming service or "levrecon reconcile" for a
one-shot run over a snapshot file.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (defaults apply when empty)")
}

// loadConfig reads the config file when given and applies environment overrides.
func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		c := config.Default()
		if err := c.ApplyEnv(os.LookupEnv); err != nil {
			return nil, err
		}
		return c, c.Validate()
	}
	return config.LoadWithEnv(cfgPath)
}
