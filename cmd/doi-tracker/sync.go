// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/doi-tracker/internal/papersdb"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add DOIs present in the papers database but absent from the tracker",
	Long: `Sync computes the set difference between the database's DOIs and the
tracker's, decodes the legacy parsing status of each new DOI, and merges
the batch with one deferred write and a single flush at the end. DOIs
already tracked are left untouched.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("db", "", "path to the papers database (default: data/papers.db)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	db, err := papersdb.Open(databasePath(cmd))
	if err != nil {
		return err
	}
	defer db.Close()

	papers, err := db.Papers(context.Background())
	if err != nil {
		return err
	}

	tr := openTracker(cmd, false)
	defer tr.Close()

	tracked, err := tr.All()
	if err != nil {
		return err
	}

	var fresh []papersdb.PaperStatus
	for _, p := range papers {
		if _, ok := tracked[p.DOI]; !ok {
			fresh = append(fresh, p)
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Database DOIs: %d, tracked: %d, new: %d\n", len(papers), len(tracked), len(fresh))
	if len(fresh) == 0 {
		fmt.Fprintln(w, "Tracker is up to date.")
		return nil
	}

	updates, dec := decodeStatuses(fresh)
	res, err := tr.BulkUpdate(updates, true)
	if err != nil {
		return err
	}
	if err := tr.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Added %d DOIs to the tracker\n", res.Inserted)
	dec.report(w)
	return nil
}
