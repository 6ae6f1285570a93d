// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doi-tracker/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print processing statistics for the tracked DOIs",
	Long: `Status summarizes the tracker: per-stage counts for availability,
download, and both extraction passes, plus the overall completion rate.
Use --format yaml for machine-readable output.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("format", "table", "output format: table or yaml")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	tr := openTracker(cmd, false)
	defer tr.Close()

	stats, err := tr.Statistics()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		data, err := yaml.Marshal(stats)
		if err != nil {
			return fmt.Errorf("marshaling statistics: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "table", "":
		fmt.Fprintln(w, renderStatsTable(stats))
		if stats.DuplicateRowsCol > 0 {
			fmt.Fprintf(w, "Note: %d duplicate file rows collapsed on load\n", stats.DuplicateRowsCol)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use table or yaml", format)
	}
}

// statRow pairs a label with its count, grouped by pipeline stage for
// the table's section separators.
type statRow struct {
	label string
	value string
}

func renderStatsTable(stats tracker.Stats) string {
	sections := [][]statRow{
		{
			{"Total DOIs", strconv.Itoa(stats.TotalDOIs)},
		},
		{
			{"Sci-Hub available", strconv.Itoa(stats.SciHubAvailable)},
			{"Sci-Hub not found", strconv.Itoa(stats.SciHubNotFound)},
		},
		{
			{"Downloaded", strconv.Itoa(stats.Downloaded)},
			{"Download failed", strconv.Itoa(stats.DownloadFailed)},
		},
		{
			{"PyMuPDF success", strconv.Itoa(stats.PyMuPDFSuccess)},
			{"PyMuPDF failed", strconv.Itoa(stats.PyMuPDFFailed)},
			{"PyMuPDF pending", strconv.Itoa(stats.PyMuPDFPending)},
		},
		{
			{"GROBID success", strconv.Itoa(stats.GrobidSuccess)},
			{"GROBID failed", strconv.Itoa(stats.GrobidFailed)},
			{"GROBID pending", strconv.Itoa(stats.GrobidPending)},
		},
		{
			{"Fully processed", strconv.Itoa(stats.FullyProcessed)},
			{"Completion rate", fmt.Sprintf("%.2f%%", stats.CompletionRate())},
		},
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Count"})
	for i, section := range sections {
		if i > 0 {
			tw.AppendSeparator()
		}
		for _, row := range section {
			tw.AppendRow(table.Row{row.label, row.value})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
