package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
)

// LoadProductsResult summarises the loaded product table
type LoadProductsResult struct {
	RowCount       int
	PreviewColumns []string
}

// LoadProducts fetches the product table for the selected category.
// Any previous allocation is discarded since it was computed from older rows.
func LoadProducts(
	ctx context.Context,
	fetcher RowFetcher,
	cfg *config.Config,
	state *WorkflowState,
	logger *zap.Logger,
) (*LoadProductsResult, error) {
	if state.SelectedCategory == "" {
		return nil, ErrNoCategorySelected
	}

	logger.Debug("Fetching product table", zap.Stringer("table", cfg.ProductTable))

	rows, err := fetcher.FetchAll(ctx, cfg.ProductTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	state.clearProducts()
	state.ProductRows = nonNil(rows)
	state.Step = StepAllocate

	logger.Info("Loaded products",
		zap.String("category", state.SelectedCategory),
		zap.Int("rows", len(rows)))

	return &LoadProductsResult{
		RowCount:       len(rows),
		PreviewColumns: PresentColumns(rows, ProductPreviewColumns),
	}, nil
}
