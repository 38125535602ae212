package db

import "context"

// HistoryStore persists allocation runs so past allocations can be audited
type HistoryStore interface {
	InsertRun(ctx context.Context, run *AllocationRun) error
	SetRunWriteOutcome(ctx context.Context, runID string, outcome WriteOutcome) error
	// GetRecentRuns returns up to limit runs, newest first, without their lines
	GetRecentRuns(ctx context.Context, limit int) ([]AllocationRun, error)
}
