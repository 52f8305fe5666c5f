// Package cmd provides the CLI commands for solar-pricing.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solar-pricing/internal/config"
	"solar-pricing/internal/logging"
)

// Version is the tool version
const Version = "0.1.0"

var (
	cfgFile      string
	verbose      bool
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "solar-pricing",
	Short: "Price matrix lookups for PV system quotes",
	Long: `solar-pricing loads module count x storage model price matrices from
Excel or CSV files, validates them, looks up prices and computes quotes.

Examples:
  solar-pricing inspect preismatrix.xlsx
  solar-pricing validate preismatrix.csv
  solar-pricing price preismatrix.xlsx --modules 20 --storage "BYD HVS 7.7"
  solar-pricing upload preismatrix.xlsx
  solar-pricing quote --modules 20 --storage-id 101 --discount 5`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, .json or .hcl (default is $HOME/.solar-pricing/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "cli", "output format (cli, json)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = defaultConfigPath(home)
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

func defaultConfigPath(home string) string {
	return home + string(os.PathSeparator) + ".solar-pricing" + string(os.PathSeparator) + "config.json"
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "solar-pricing version %s\n", Version)
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(config.Get(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = defaultConfigPath(home)
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}
