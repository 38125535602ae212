package allocator

import (
	"fmt"
	"strings"

	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// MissingFieldError reports required columns absent from a set of rows
type MissingFieldError struct {
	// Table names the row set, e.g. "category" or "product"
	Table string
	// Fields lists the missing column names
	Fields []string
	// Available lists the columns that were present
	Available []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s rows are missing required fields [%s] (available: [%s])",
		e.Table, strings.Join(e.Fields, ", "), strings.Join(e.Available, ", "))
}

// NoEligibleProductError is returned when units must be allocated by MOH but
// no product has a positive sales rate
type NoEligibleProductError struct {
	ProductCount   int
	TotalRequested int
}

func (e *NoEligibleProductError) Error() string {
	return fmt.Sprintf("no product has a positive sales rate (%d products, %d units requested)",
		e.ProductCount, e.TotalRequested)
}

// InvalidInputError reports input the allocator refuses to process
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid allocation input: %s: %v", e.Reason, e.Err)
	}
	return "invalid allocation input: " + e.Reason
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// checkColumns returns a MissingFieldError naming every field no row carries.
// An empty row set is not checked.
func checkColumns(table string, rows []model.Row, fields ...string) error {
	if len(rows) == 0 {
		return nil
	}

	var missing []string
	for _, field := range fields {
		if !model.HasColumn(rows, field) {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return &MissingFieldError{
		Table:     table,
		Fields:    missing,
		Available: model.Columns(rows),
	}
}
