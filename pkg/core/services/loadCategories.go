package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/category"
)

// LoadCategoriesResult summarises the loaded category table
type LoadCategoriesResult struct {
	RowCount int
	Labels   []string
}

// LoadCategories fetches the category table into the workflow state.
// A previous selection is kept only if its label still exists.
func LoadCategories(
	ctx context.Context,
	fetcher RowFetcher,
	cfg *config.Config,
	state *WorkflowState,
	logger *zap.Logger,
) (*LoadCategoriesResult, error) {
	logger.Debug("Fetching category table", zap.Stringer("table", cfg.CategoryTable))

	rows, err := fetcher.FetchAll(ctx, cfg.CategoryTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	labels := category.ExtractDistinctLabels(rows, cfg.Fields.CategoryLabel)
	logger.Info("Loaded categories",
		zap.Int("rows", len(rows)),
		zap.Int("labels", len(labels)))

	state.CategoryRows = nonNil(rows)
	if state.SelectedCategory != "" && !contains(labels, state.SelectedCategory) {
		logger.Info("Selected category no longer present, clearing selection",
			zap.String("category", state.SelectedCategory))
		state.clearSelection()
	}

	return &LoadCategoriesResult{
		RowCount: len(rows),
		Labels:   labels,
	}, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
