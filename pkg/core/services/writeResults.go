package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/db"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

// WriteResults replaces the target table with the current allocation.
// The returned error covers failures before anything was written; batch
// failures during the write are reported in the WriteResult.
func WriteResults(
	ctx context.Context,
	writer RowWriter,
	history db.HistoryStore,
	cfg *config.Config,
	state *WorkflowState,
	logger *zap.Logger,
) (*recordstore.WriteResult, error) {
	if state.Result == nil {
		return nil, ErrNoAllocation
	}

	rows := state.Result.OutputRows(cfg.AllocatorOptions().Fields)
	logger.Info("Overwriting target table",
		zap.Stringer("table", cfg.TargetTable),
		zap.String("category", state.SelectedCategory),
		zap.Int("rows", len(rows)))

	result, err := writer.ClearAndOverwrite(ctx, cfg.TargetTable, rows)
	if err != nil {
		recordOutcome(ctx, history, state.RunID, db.WriteOutcome{
			Status:  db.RunStatusFailed,
			Message: err.Error(),
			At:      time.Now(),
		}, logger)
		return nil, fmt.Errorf("failed to write results: %w", err)
	}

	for _, batchErr := range result.Errors {
		logger.Warn("Write batch failed", zap.String("error", batchErr))
	}
	logger.Info("Write finished",
		zap.Bool("success", result.Success),
		zap.Int("deleted", result.DeletedCount),
		zap.Int("written", result.SuccessCount),
		zap.Int("failed", result.ErrorCount))

	recordOutcome(ctx, history, state.RunID, db.WriteOutcome{
		Status:       outcomeStatus(result),
		WrittenCount: result.SuccessCount,
		FailedCount:  result.ErrorCount,
		DeletedCount: result.DeletedCount,
		Message:      result.Message,
		At:           time.Now(),
	}, logger)

	return result, nil
}

func outcomeStatus(result *recordstore.WriteResult) db.RunStatus {
	switch {
	case result.ErrorCount == 0 && result.SuccessCount > 0:
		return db.RunStatusWritten
	case result.Success:
		return db.RunStatusPartial
	}
	return db.RunStatusFailed
}

func recordOutcome(ctx context.Context, history db.HistoryStore, runID string, outcome db.WriteOutcome, logger *zap.Logger) {
	if history == nil || runID == "" {
		return
	}
	if err := history.SetRunWriteOutcome(ctx, runID, outcome); err != nil {
		logger.Warn("Failed to record write outcome", zap.String("run_id", runID), zap.Error(err))
	}
}
