// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/doi-tracker/internal/papersdb"
	"github.com/pdiddy/doi-tracker/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the tracker with extraction output and the papers database",
	Long: `Reconcile scans the extraction output directory, treats each output
file as ground truth for completed work, and merges the evidence into
the tracker. It then reports any DOI-set divergence between the tracker
and the papers database. Scripts that only detect divergence without
repairing it can pass --dry-run.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().String("db", "", "path to the papers database (default: data/papers.db)")
	reconcileCmd.Flags().String("output-dir", "", "extraction output directory (default: output)")
	reconcileCmd.Flags().Bool("dry-run", false, "report what would change without writing the tracker")

	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	tr := openTracker(cmd, false)
	defer tr.Close()

	tracked, err := tr.All()
	if err != nil {
		return err
	}

	// The directory scan and the database query are independent; run
	// them concurrently.
	var (
		found map[string]reconcile.ExtractorSet
		scan  reconcile.ScanStats
		dbSet map[string]struct{}
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		found, scan, err = reconcile.ScanOutputDir(outputDir(cmd))
		return err
	})
	g.Go(func() error {
		db, err := papersdb.Open(databasePath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()
		dbSet, err = db.DOISet(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Output files: %d (grobid: %d, pymupdf: %d, unique DOIs: %d)\n",
		scan.Files, scan.GrobidOut, scan.PyMuPDFOut, scan.UniqueDOIs)

	updates := reconcile.BuildUpdates(found, tracked)
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	switch {
	case len(updates) == 0:
		fmt.Fprintln(w, "Tracker already reflects all extraction output.")
	case dryRun:
		fmt.Fprintf(w, "Would update %d tracker records (dry run)\n", len(updates))
	default:
		res, err := tr.BulkUpdate(updates, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Updated tracker from filesystem: %d inserted, %d updated\n",
			res.Inserted, res.Updated)
		tracked, err = tr.All()
		if err != nil {
			return err
		}
	}

	div := reconcile.Diff(tracked, dbSet)
	if div.InSync() {
		fmt.Fprintln(w, "Tracker and database DOI sets are in sync.")
		return nil
	}

	fmt.Fprintf(w, "Divergence: %d DOIs missing from tracker, %d missing from database\n",
		len(div.MissingFromTracker), len(div.MissingFromDB))
	printSample(w, "missing from tracker (run sync)", div.MissingFromTracker)
	printSample(w, "missing from database (candidates for remove)", div.MissingFromDB)
	return nil
}

const maxDivergenceSamples = 10

func printSample(w io.Writer, label string, dois []string) {
	if len(dois) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for i, doi := range dois {
		if i == maxDivergenceSamples {
			fmt.Fprintf(w, "    ... and %d more\n", len(dois)-maxDivergenceSamples)
			break
		}
		fmt.Fprintf(w, "    %s\n", doi)
	}
}
