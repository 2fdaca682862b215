// Package db defines the storage records and interfaces of the service.
// Implementations live in subpackages.
package db

import (
	"errors"
	"time"
)

var ErrJournalClosed = errors.New("journal is closed")

// Rebuild outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeBusy    = "busy"
)

// Rebuild is one row of the rebuild journal.
// Timestamps use RFC3339 format in UTC timezone.
type Rebuild struct {
	ID         int64     `json:"id"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	Started    time.Time `json:"started"`
	DurationMs int64     `json:"duration_ms"`
	Entries    int       `json:"entries"`
	Files      int       `json:"files"`
	Dropped    int       `json:"dropped"`
	Signature  string    `json:"signature,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// DbJournal records rebuild attempts.
type DbJournal interface {
	InsertRebuild(r Rebuild) (int64, error)
	// ListRebuilds returns the most recent rows first.
	ListRebuilds(limit int) ([]Rebuild, error)
	// Prune deletes all but the keep most recent rows and returns how many
	// were removed.
	Prune(keep int) (int, error)
	Close() error
}

// TimeFormat formats t as RFC3339 in UTC for storage.
func TimeFormat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// TimeParse parses a stored timestamp. The empty string is the zero time.
func TimeParse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
