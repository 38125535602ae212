package recordstore

import (
	"context"
	"fmt"
	"math"

	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// DefaultBatchSize is the number of rows written or deleted per request
const DefaultBatchSize = 100

// RecordIDField is the pseudo-field some callers attach to rows to carry the
// store's record identifier. It is never written back.
const RecordIDField = "_record_id"

// Store reads and replaces whole tables in a remote record store
type Store interface {
	// FetchAll returns every row of the table, following pagination
	FetchAll(ctx context.Context, table model.TableRef) ([]model.Row, error)

	// ClearAndOverwrite deletes every existing row and inserts rows in batches.
	// An error means the table could not be cleared; write failures after that
	// are reported in the result.
	ClearAndOverwrite(ctx context.Context, table model.TableRef, rows []model.Row) (*WriteResult, error)
}

// WriteResult reports the outcome of a destructive overwrite
type WriteResult struct {
	Success      bool
	Message      string
	DeletedCount int
	SuccessCount int
	ErrorCount   int
	Errors       []string
}

// CleanRows copies rows dropping empty values (nil and NaN) and the record ID
// pseudo-field, so empty cells are left unset rather than written as nulls
func CleanRows(rows []model.Row) []model.Row {
	cleaned := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		clean := make(model.Row, len(row))
		for key, value := range row {
			if key == RecordIDField || isEmpty(value) {
				continue
			}
			clean[key] = value
		}
		cleaned = append(cleaned, clean)
	}
	return cleaned
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

// Batches splits items into consecutive chunks of at most size elements
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// BatchWriteFunc writes one batch of rows
type BatchWriteFunc func(ctx context.Context, batch []model.Row) error

// WriteBatches writes rows batch by batch, carrying on past failed batches,
// and reports aggregate counts. A batch that fails counts all its rows as failed.
func WriteBatches(ctx context.Context, table model.TableRef, rows []model.Row, batchSize int, write BatchWriteFunc) *WriteResult {
	result := &WriteResult{Errors: []string{}}

	if len(rows) == 0 {
		result.Message = fmt.Sprintf("no valid rows to write to %s", table)
		return result
	}

	batches := Batches(rows, batchSize)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			result.ErrorCount += len(batch)
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d/%d skipped: %v", i+1, len(batches), err))
			continue
		}

		if err := write(ctx, batch); err != nil {
			result.ErrorCount += len(batch)
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d/%d failed: %v", i+1, len(batches), err))
			continue
		}
		result.SuccessCount += len(batch)
	}

	if result.ErrorCount == 0 {
		result.Success = true
		result.Message = fmt.Sprintf("overwrote %s with %d rows", table, result.SuccessCount)
	} else {
		result.Success = result.SuccessCount > 0
		result.Message = fmt.Sprintf("overwrite of %s: %d rows written, %d rows failed", table, result.SuccessCount, result.ErrorCount)
	}

	return result
}
