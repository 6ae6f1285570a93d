// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doi-tracker/internal/tracker"
	"github.com/pdiddy/doi-tracker/pkg/types"
)

const (
	defaultTrackerFile = "doi_processing_tracker.csv"
	defaultDBPath      = "data/papers.db"
	defaultOutputDir   = "output"
)

// setting resolves a value in priority order: command flag, then config
// file / environment via viper, then the built-in fallback.
func setting(cmd *cobra.Command, flag, viperKey, fallback string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	return fallback
}

func trackerConfig(cmd *cobra.Command) types.TrackerConfig {
	file, _ := cmd.Root().PersistentFlags().GetString("tracker-file")
	if file == "" {
		file = viper.GetString("tracker.file")
	}
	if file == "" {
		file = defaultTrackerFile
	}
	return types.TrackerConfig{File: file}
}

// openTracker builds a tracker from the resolved config. Callers own the
// returned tracker and must Close it.
func openTracker(cmd *cobra.Command, createMissing bool) *tracker.Tracker {
	cfg := trackerConfig(cmd)
	cfg.CreateMissing = createMissing
	return tracker.New(cfg)
}

func databasePath(cmd *cobra.Command) string {
	return setting(cmd, "db", "database.path", defaultDBPath)
}

func outputDir(cmd *cobra.Command) string {
	return setting(cmd, "output-dir", "output.dir", defaultOutputDir)
}
