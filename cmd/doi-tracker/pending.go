// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending [stage]",
	Short: "List DOIs with outstanding work for a pipeline stage",
	Long: `Pending lists DOIs the given stage still needs to process, one per
line, suitable for piping into the batch-splitting tooling.

Stages:
  download   available in Sci-Hub but not yet downloaded
  pymupdf    downloaded, fast extraction pass not yet succeeded
  grobid     downloaded, structured extraction pass not yet succeeded`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"download", "pymupdf", "grobid"},
	RunE:      runPending,
}

func init() {
	pendingCmd.Flags().Int("limit", 0, "print at most this many DOIs (0 = all)")

	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	tr := openTracker(cmd, false)
	defer tr.Close()

	var (
		dois []string
		err  error
	)
	switch args[0] {
	case "download":
		dois, err = tr.NeedingDownload()
	case "pymupdf":
		dois, err = tr.NeedingPyMuPDF()
	case "grobid":
		dois, err = tr.NeedingGrobid()
	default:
		return fmt.Errorf("unknown stage %q: use download, pymupdf, or grobid", args[0])
	}
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 && len(dois) > limit {
		dois = dois[:limit]
	}

	w := cmd.OutOrStdout()
	for _, doi := range dois {
		fmt.Fprintln(w, doi)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d DOIs pending %s\n", len(dois), args[0])
	return nil
}
