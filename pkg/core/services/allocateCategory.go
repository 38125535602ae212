package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/category"
	"github.com/jakechorley/category-allocator/pkg/db"
)

// AllocateResult is a computed allocation with its summary
type AllocateResult struct {
	Result *allocator.Result
	Stats  allocator.Stats
	// RunID is empty when no history store is configured
	RunID  string
	DryRun bool
}

// AllocateCategory distributes the selected category's requirement over the
// loaded products. A dry run leaves the workflow state untouched. When history
// is non-nil the run is recorded; a history failure is logged, not returned.
func AllocateCategory(
	ctx context.Context,
	history db.HistoryStore,
	cfg *config.Config,
	state *WorkflowState,
	logger *zap.Logger,
	policy allocator.Policy,
	dryRun bool,
) (*AllocateResult, error) {
	if state.SelectedCategory == "" {
		return nil, ErrNoCategorySelected
	}
	if state.ProductRows == nil {
		return nil, ErrNoProductsLoaded
	}
	if policy == "" {
		policy = cfg.Policy
	}

	categoryRows := category.FilterByLabel(state.CategoryRows, cfg.Fields.CategoryLabel, state.SelectedCategory)
	logger.Debug("Allocating",
		zap.String("category", state.SelectedCategory),
		zap.String("policy", string(policy)),
		zap.Int("category_rows", len(categoryRows)),
		zap.Int("products", len(state.ProductRows)),
		zap.Bool("dry_run", dryRun))

	result, err := allocator.Allocate(policy, categoryRows, state.ProductRows, cfg.AllocatorOptions())
	if err != nil {
		return nil, fmt.Errorf("allocation failed for category %q: %w", state.SelectedCategory, err)
	}

	stats := result.Stats()
	logger.Info("Allocation complete",
		zap.String("category", state.SelectedCategory),
		zap.Int("total_requested", stats.TotalRequested),
		zap.Int("allocated_total", stats.AllocatedTotal),
		zap.Int("products", stats.ProductCount))

	out := &AllocateResult{
		Result: result,
		Stats:  stats,
		DryRun: dryRun,
	}

	if history != nil {
		run := newAllocationRun(cfg, state, result, dryRun)
		if err := history.InsertRun(ctx, run); err != nil {
			logger.Warn("Failed to record allocation run", zap.Error(err))
		} else {
			out.RunID = run.ID
			logger.Debug("Recorded allocation run", zap.String("run_id", run.ID))
		}
	}

	if !dryRun {
		state.Result = result
		state.RunID = out.RunID
		state.Step = StepWrite
	}

	return out, nil
}

func newAllocationRun(cfg *config.Config, state *WorkflowState, result *allocator.Result, dryRun bool) *db.AllocationRun {
	status := db.RunStatusAllocated
	if dryRun {
		status = db.RunStatusDryRun
	}

	run := &db.AllocationRun{
		ID:             uuid.New().String(),
		SessionID:      state.SessionID,
		Category:       state.SelectedCategory,
		Policy:         string(result.Policy),
		TotalRequested: result.TotalRequested,
		AllocatedTotal: result.AllocatedTotal(),
		ProductCount:   len(result.Products),
		Status:         status,
		CreatedAt:      time.Now(),
	}

	for i, p := range result.Products {
		stockAfter := p.TotalStock
		stockBefore := p.TotalStock
		if result.Policy == allocator.PolicyMOH {
			stockBefore -= float64(p.AllocatedQuantity)
		}

		run.Lines = append(run.Lines, db.AllocationLine{
			RunID:             run.ID,
			Position:          i,
			ProductName:       p.Row.Text(cfg.Fields.ProductName),
			SalesRate:         p.SalesRate,
			StockBefore:       stockBefore,
			StockAfter:        stockAfter,
			AllocatedQuantity: p.AllocatedQuantity,
		})
	}

	return run
}
