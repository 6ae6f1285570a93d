// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doi-tracker/internal/statuscodec"
)

var getCmd = &cobra.Command{
	Use:   "get [doi]",
	Short: "Show the tracked record for one DOI",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	tr := openTracker(cmd, false)
	defer tr.Close()

	rec, ok, err := tr.Get(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("DOI %q is not tracked", args[0])
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	w := cmd.OutOrStdout()
	if _, err := w.Write(data); err != nil {
		return err
	}
	fmt.Fprintf(w, "combined: %s\n", statuscodec.Encode(rec))
	return nil
}
