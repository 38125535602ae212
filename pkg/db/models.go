package db

import "time"

// RunStatus tracks where an allocation run is in the write workflow
type RunStatus string

const (
	// RunStatusDryRun marks a preview that is never written
	RunStatusDryRun RunStatus = "dry_run"
	// RunStatusAllocated marks a computed allocation that has not been written yet
	RunStatusAllocated RunStatus = "allocated"
	RunStatusWritten   RunStatus = "written"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// AllocationRun is one allocation computed for a category
type AllocationRun struct {
	ID             string
	SessionID      string
	Category       string
	Policy         string
	TotalRequested int
	AllocatedTotal int
	ProductCount   int
	Status         RunStatus
	CreatedAt      time.Time

	// Set once the run has been written to the target table
	WrittenCount int
	FailedCount  int
	DeletedCount int
	WriteMessage string
	WrittenAt    *time.Time

	Lines []AllocationLine
}

// AllocationLine is the quantity given to a single product in a run
type AllocationLine struct {
	RunID             string
	Position          int
	ProductName       string
	SalesRate         float64
	StockBefore       float64
	StockAfter        float64
	AllocatedQuantity int
}

// WriteOutcome records the result of writing a run to the target table
type WriteOutcome struct {
	Status       RunStatus
	WrittenCount int
	FailedCount  int
	DeletedCount int
	Message      string
	At           time.Time
}
