// Package runstore persists check-updates run records. Records are
// append-only, keyed by (spec name, start time); a record is written once
// at submit and once more when the run reaches a terminal state.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
)

// ErrNotFound is returned when no record exists for the requested key.
var ErrNotFound = errors.New("runstore: record not found")

// Record is one observable status line for a scheduled run.
type Record struct {
	SpecName   string           `json:"spec_name"`
	RunID      string           `json:"run_id"`
	Command    string           `json:"command"`
	Args       []string         `json:"args,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Status     runner.RunStatus `json:"status"`
	ExitCode   *int             `json:"exit_code,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// Store persists run records.
type Store interface {
	// Save writes a record. Writing the same (spec, start time) key again
	// updates that run's status; records for distinct runs are never touched.
	Save(ctx context.Context, rec Record) error

	// List returns records for a spec, newest first, at most limit
	// entries (0 means no limit).
	List(ctx context.Context, specName string, limit int) ([]Record, error)

	// Last returns the most recent record for a spec, or ErrNotFound.
	Last(ctx context.Context, specName string) (*Record, error)

	// Close closes the connection to the store.
	Close() error
}
