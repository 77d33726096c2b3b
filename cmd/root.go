// Package cmd implements the seqgap CLI using the cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/seqgap/internal/config"
	"firestige.xyz/seqgap/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seqgap",
	Short: "seqgap - sequence gap diagnostics for the spectrometer UDP stream",
	Long: `seqgap captures the FPGA spectrometer's UDP stream, reads the 64-bit
sequence counter of a fixed number of packets, and reports the histogram of
gaps between consecutive counters together with capture-side drop counts.

A clean path shows a single bin at gap 1. Bins above 1 are lost packets,
bins at 0 are duplicates.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and SEQGAP_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(sendCmd)
}

// loadConfig loads the configuration, applies command-line overrides,
// re-validates, and installs the logger. The returned function closes any
// log file that was opened.
func loadConfig(cmd *cobra.Command, override func(*config.GlobalConfig)) (*config.GlobalConfig, func() error, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		override(cfg)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, nil, err
	}

	closeLog, err := log.Init(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}
