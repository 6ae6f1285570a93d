// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/doi-tracker/internal/papersdb"
	"github.com/pdiddy/doi-tracker/internal/statuscodec"
	"github.com/pdiddy/doi-tracker/pkg/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialize the tracker from the papers database",
	Long: `Seed reads every DOI and legacy parsing status from the papers
database and merges them into the tracker. Legacy status strings are
decoded into per-stage fields where possible; DOIs without a decodable
status enter with explicit unknown/not_attempted defaults.

Use --create on the first run to start a tracker file that does not
exist yet. Without it a missing file is an error, so a mistyped path
cannot silently produce an empty tracker.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("db", "", "path to the papers database (default: data/papers.db)")
	seedCmd.Flags().Bool("create", false, "create the tracker file if it does not exist")

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	db, err := papersdb.Open(databasePath(cmd))
	if err != nil {
		return err
	}
	defer db.Close()

	papers, err := db.Papers(context.Background())
	if err != nil {
		return err
	}

	create, _ := cmd.Flags().GetBool("create")
	tr := openTracker(cmd, create)
	defer tr.Close()
	if err := tr.EnsureLoaded(); err != nil {
		return err
	}

	updates, dec := decodeStatuses(papers)

	// Deferred write, one flush at the end: durability is traded for a
	// single rewrite instead of one per batch.
	res, err := tr.BulkUpdate(updates, true)
	if err != nil {
		return err
	}
	if err := tr.Flush(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Seeded %d DOIs: %d inserted, %d updated\n", res.Total(), res.Inserted, res.Updated)
	dec.report(w)
	return nil
}

// decodeSummary counts legacy status decode outcomes across one run.
type decodeSummary struct {
	Decoded      int
	Defaults     int
	Unrecognized int

	// samples holds a few unrecognized strings for the run report, so
	// unclassifiable statuses get manual review instead of guesses.
	samples []string
}

const maxUnrecognizedSamples = 10

func (d decodeSummary) report(w io.Writer) {
	fmt.Fprintf(w, "Legacy statuses: %d decoded, %d defaulted, %d unrecognized\n",
		d.Decoded, d.Defaults, d.Unrecognized)
	if d.Unrecognized == 0 {
		return
	}
	fmt.Fprintln(w, "Unrecognized status strings (review manually):")
	for _, s := range d.samples {
		fmt.Fprintf(w, "  %s\n", s)
	}
	if d.Unrecognized > len(d.samples) {
		fmt.Fprintf(w, "  ... and %d more\n", d.Unrecognized-len(d.samples))
	}
}

// decodeStatuses turns database rows into tracker updates. Every DOI
// yields an update; the decode result only determines which fields it
// carries. Inserting an update with no fields creates the record at its
// conservative defaults.
func decodeStatuses(papers []papersdb.PaperStatus) ([]types.RecordUpdate, decodeSummary) {
	updates := make([]types.RecordUpdate, 0, len(papers))
	var dec decodeSummary

	for _, p := range papers {
		u := types.RecordUpdate{DOI: p.DOI}
		switch res := statuscodec.Decode(p.ParsingStatus); res.Kind {
		case statuscodec.KindFields:
			u = res.Fields
			u.DOI = p.DOI
			dec.Decoded++
		case statuscodec.KindNoSignal:
			dec.Defaults++
		case statuscodec.KindUnrecognized:
			dec.Unrecognized++
			if len(dec.samples) < maxUnrecognizedSamples {
				dec.samples = append(dec.samples, fmt.Sprintf("%s: %q", p.DOI, p.ParsingStatus))
			}
		}
		updates = append(updates, u)
	}
	return updates, dec
}
