// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package papersdb provides read-only access to the papers database, the
// source of truth for DOIs and their legacy parsing status.
// Implements: prd003-reconcile (R1); docs/ARCHITECTURE § Collaborators.
//
// The tracker only ever reads from this database; growing or repairing
// the tracker goes through the tracker's bulk update, never the other
// way around.
package papersdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// PaperStatus is one row of the papers relation as the tracker sees it:
// the DOI and the free-form legacy parsing_status string.
type PaperStatus struct {
	DOI           string
	ParsingStatus string
}

// DB is a read-only handle on the papers database.
type DB struct {
	db *sql.DB
}

// Open connects to the sqlite papers database at path in read-only mode.
// A missing file is an error up front rather than an empty database
// sqlite would silently create.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("papers database: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening papers database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Papers returns every row with a non-empty DOI together with its legacy
// parsing status. Rows whose doi column is NULL or empty are treated as
// "no DOI" and skipped.
func (d *DB) Papers(ctx context.Context) ([]PaperStatus, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT doi, parsing_status FROM papers WHERE doi IS NOT NULL AND doi != ''`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []PaperStatus
	for rows.Next() {
		var doi string
		var status sql.NullString
		if err := rows.Scan(&doi, &status); err != nil {
			return nil, fmt.Errorf("scanning papers row: %w", err)
		}
		papers = append(papers, PaperStatus{DOI: doi, ParsingStatus: status.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating papers: %w", err)
	}
	return papers, nil
}

// DOISet returns the set of non-empty DOIs in the database, for set
// differences against the tracker.
func (d *DB) DOISet(ctx context.Context) (map[string]struct{}, error) {
	papers, err := d.Papers(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(papers))
	for _, p := range papers {
		set[p.DOI] = struct{}{}
	}
	return set, nil
}
