// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the doi-tracker CLI.
// Implements: prd001-tracker, prd002-status-codec, prd003-reconcile,
//             prd004-reporting (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the doi-tracker CLI.
var rootCmd = &cobra.Command{
	Use:   "doi-tracker",
	Short: "Progress tracker for the paper acquisition pipeline",
	Long: `doi-tracker owns the DOI-keyed progress tracker recording the state of
the document acquisition pipeline: Sci-Hub availability, download, and
the PyMuPDF and GROBID extraction passes.

The tracker file is the single shared artifact every pipeline script
reads and writes. Subcommands seed it from the papers database, sync
new DOIs into it, reconcile it against extraction output on disk, and
report its state. All growth goes through the tracker's bulk update;
editing the file directly bypasses duplicate detection and ordering
guarantees.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./doi-tracker.yaml or ~/.config/doi-tracker/config.yaml)")
	rootCmd.PersistentFlags().String("tracker-file", "", "path to the tracker CSV file")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("doi-tracker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "doi-tracker"))
		}
	}

	viper.SetEnvPrefix("DOI_TRACKER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
