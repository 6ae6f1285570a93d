// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [dois...]",
	Short: "Remove DOIs from the tracker (maintenance action)",
	Long: `Remove deletes tracker entries for DOIs that should no longer be
tracked, typically after rows were removed from the papers database.
Removal is idempotent: absent DOIs are skipped, not errors. DOIs are
taken from the arguments, or from a file via --from-file (one DOI per
line, blank lines and # comments ignored).

Normal pipeline operation never deletes records; this is an operator
tool.`,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().String("from-file", "", "read DOIs to remove from a file")

	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	dois := args

	if fromFile, _ := cmd.Flags().GetString("from-file"); fromFile != "" {
		fileDOIs, err := readDOIList(fromFile)
		if err != nil {
			return err
		}
		dois = append(dois, fileDOIs...)
	}
	if len(dois) == 0 {
		return fmt.Errorf("no DOIs given: pass them as arguments or via --from-file")
	}

	tr := openTracker(cmd, false)
	defer tr.Close()

	removed, err := tr.Remove(dois, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d DOIs (%d were not tracked)\n",
		removed, len(dois), len(dois)-removed)
	return nil
}

func readDOIList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOI list: %w", err)
	}
	defer f.Close()

	var dois []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dois = append(dois, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading DOI list: %w", err)
	}
	return dois, nil
}
