package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"GlucoPlot/pkg/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "glucoplot",
	Short: "Glucose, insulin and carbs charts",
	Long: `GlucoPlot ingests CGM readings, insulin doses and carb intakes and renders
daily and weekly glucose charts with the clinical range bands.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file path (empty for defaults)")
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
