// Package main provides the unified CLI entry point for the plant-processor services.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "plant-processor",
	Short: "Plant telemetry processing pipeline",
	Long: `Plant telemetry pipeline.

The processor subcommand consumes sensor readings from Kafka, scores plant
health against each plant's care profile, records alerts and mirrors state to
Home Assistant. The generator subcommand simulates a fleet of plant sensors.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if used := viper.ConfigFileUsed(); used != "" {
			GetLogger().Info("loaded config file", "path", used, "command", cmd.Name())
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", rootCmd.Name(), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		if err := InitConfig(cfgFile); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", rootCmd.Name(), err)
			os.Exit(1)
		}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, then /etc/plant-processor/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-source", false, "include source file and line in log records")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.source", flags.Lookup("log-source"))
}
