package services

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/category"
	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// SelectCategoryResult describes the chosen category
type SelectCategoryResult struct {
	Label string
	// Rows are the category rows carrying the label
	Rows []model.Row
	// PreviewColumns are the preview columns present in Rows
	PreviewColumns []string
	// Changed is true when a different category was selected before
	Changed bool
}

// ListCategories returns the distinct category labels of the loaded category table
func ListCategories(cfg *config.Config, state *WorkflowState) ([]string, error) {
	if state.CategoryRows == nil {
		return nil, ErrNoCategoriesLoaded
	}
	if !model.HasColumn(state.CategoryRows, cfg.Fields.CategoryLabel) {
		return nil, categoryColumnMissing(cfg, state)
	}

	return category.ExtractDistinctLabels(state.CategoryRows, cfg.Fields.CategoryLabel), nil
}

// SelectCategory picks a category by label or by its 1-based position in the
// sorted label list. Choosing a different category discards loaded products
// and any allocation.
func SelectCategory(
	cfg *config.Config,
	state *WorkflowState,
	logger *zap.Logger,
	choice string,
) (*SelectCategoryResult, error) {
	labels, err := ListCategories(cfg, state)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("category table has no values in column %q", cfg.Fields.CategoryLabel)
	}

	label, err := resolveLabel(labels, choice)
	if err != nil {
		return nil, err
	}

	changed := state.SelectedCategory != "" && state.SelectedCategory != label
	if state.SelectedCategory != label {
		logger.Debug("Category changed, clearing downstream state",
			zap.String("previous", state.SelectedCategory),
			zap.String("selected", label))
		state.clearSelection()
		state.SelectedCategory = label
	}
	if state.Step < StepLoadProducts {
		state.Step = StepLoadProducts
	}

	rows := category.FilterByLabel(state.CategoryRows, cfg.Fields.CategoryLabel, label)
	logger.Info("Selected category", zap.String("category", label), zap.Int("rows", len(rows)))

	return &SelectCategoryResult{
		Label:          label,
		Rows:           rows,
		PreviewColumns: PresentColumns(rows, CategoryPreviewColumns),
		Changed:        changed,
	}, nil
}

func resolveLabel(labels []string, choice string) (string, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "", fmt.Errorf("no category given")
	}

	// An exact label wins over an index, so numeric labels stay selectable
	if contains(labels, choice) {
		return choice, nil
	}

	if index, err := strconv.Atoi(choice); err == nil {
		if index < 1 || index > len(labels) {
			return "", fmt.Errorf("category index %d out of range (1-%d)", index, len(labels))
		}
		return labels[index-1], nil
	}

	return "", fmt.Errorf("unknown category %q", choice)
}

func categoryColumnMissing(cfg *config.Config, state *WorkflowState) error {
	return &allocator.MissingFieldError{
		Table:     "category",
		Fields:    []string{cfg.Fields.CategoryLabel},
		Available: model.Columns(state.CategoryRows),
	}
}
