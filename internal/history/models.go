package history

import (
	"time"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one persisted run record.
type Run struct {
	ID           int64
	RunID        string
	Status       Status
	Inputs       []string
	Operations   []string
	OutputPath   string
	OutputFormat string
	Steps        int
	Dispatches   int
	WorkDir      string
	// Retained counts intermediates left on disk by --keep-temp.
	Retained     int
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Elapsed returns the wall-clock duration of the run.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the run ended in an error.
func (r Run) Failed() bool {
	return r.Status == StatusFailed
}

// Filter narrows List results.
type Filter struct {
	Status Status
	// Limit caps the number of rows; zero means DefaultLimit.
	Limit int
}

// DefaultLimit is the List row cap when none is given.
const DefaultLimit = 20
