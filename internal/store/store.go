// Package store persists merge results and a log of the runs that produced
// them.
package store

import (
	"context"
	"time"

	"github.com/sells-group/recordlink/internal/table"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one execution of a merge job.
type Run struct {
	ID        string    `json:"id"`
	Job       string    `json:"job"`
	Status    RunStatus `json:"status"`
	Rows      int       `json:"rows"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Job    string    `json:"job,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for merge results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, job string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, rows int) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Result tables
	SaveTable(ctx context.Context, name string, t *table.Table) error
	LoadTable(ctx context.Context, name string) (*table.Table, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
