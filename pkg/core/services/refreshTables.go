package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/category"
	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// RefreshResult summarises a refresh
type RefreshResult struct {
	CategoryCount int
	ProductCount  int
	// SelectionKept is false when the selected category disappeared
	SelectionKept bool
}

// RefreshTables reloads the category and product tables concurrently.
// The state is only changed when both fetches succeed. Any allocation is
// discarded; products are only kept in the state once a category is selected.
func RefreshTables(
	ctx context.Context,
	fetcher RowFetcher,
	cfg *config.Config,
	state *WorkflowState,
	logger *zap.Logger,
) (*RefreshResult, error) {
	var categoryRows, productRows []model.Row

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := fetcher.FetchAll(gctx, cfg.CategoryTable)
		if err != nil {
			return fmt.Errorf("failed to refresh categories: %w", err)
		}
		categoryRows = nonNil(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := fetcher.FetchAll(gctx, cfg.ProductTable)
		if err != nil {
			return fmt.Errorf("failed to refresh products: %w", err)
		}
		productRows = nonNil(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Refreshed tables",
		zap.Int("categories", len(categoryRows)),
		zap.Int("products", len(productRows)))

	state.CategoryRows = categoryRows
	result := &RefreshResult{
		CategoryCount: len(categoryRows),
		ProductCount:  len(productRows),
	}

	if state.SelectedCategory == "" {
		state.clearSelection()
		return result, nil
	}

	labels := category.ExtractDistinctLabels(categoryRows, cfg.Fields.CategoryLabel)
	if !contains(labels, state.SelectedCategory) {
		logger.Info("Selected category no longer present, clearing selection",
			zap.String("category", state.SelectedCategory))
		state.clearSelection()
		return result, nil
	}

	state.clearProducts()
	state.ProductRows = productRows
	state.Step = StepAllocate
	result.SelectionKept = true

	return result, nil
}

func nonNil(rows []model.Row) []model.Row {
	if rows == nil {
		return []model.Row{}
	}
	return rows
}
