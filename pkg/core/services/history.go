package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/pkg/db"
)

// ErrHistoryDisabled is returned when no history database is configured
var ErrHistoryDisabled = errors.New("allocation history is disabled, set historyDatabaseURL to enable it")

// ListHistory returns the most recent allocation runs, newest first
func ListHistory(ctx context.Context, history db.HistoryStore, logger *zap.Logger, limit int) ([]db.AllocationRun, error) {
	if history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", limit)
	}

	logger.Debug("Fetching allocation history", zap.Int("limit", limit))
	runs, err := history.GetRecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocation history: %w", err)
	}

	return runs, nil
}

// ResetWorkflow discards all workflow state and starts a new session
func ResetWorkflow(store StateStore, logger *zap.Logger) (*WorkflowState, error) {
	state := NewWorkflowState()
	if err := store.Save(state); err != nil {
		return nil, fmt.Errorf("failed to reset workflow: %w", err)
	}

	logger.Info("Workflow reset", zap.String("session_id", state.SessionID))
	return state, nil
}
