package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/category-allocator/pkg/db"
)

var lineColumns = []string{
	"run_id", "position", "product_name", "sales_rate", "stock_before", "stock_after", "allocated_quantity",
}

// InsertRun inserts a run and its lines in one transaction
func (d *DB) InsertRun(ctx context.Context, run *db.AllocationRun) error {
	runID, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", run.ID, err)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_run (id, session_id, category, policy, total_requested, allocated_total, product_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, runID, run.SessionID, run.Category, run.Policy, run.TotalRequested, run.AllocatedTotal, run.ProductCount, string(run.Status), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert allocation run: %w", err)
	}

	if len(run.Lines) > 0 {
		rows := make([][]any, len(run.Lines))
		for i, line := range run.Lines {
			rows[i] = []any{runID, line.Position, line.ProductName, line.SalesRate, line.StockBefore, line.StockAfter, line.AllocatedQuantity}
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"allocation_line"}, lineColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to insert allocation lines: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SetRunWriteOutcome records how writing a run to the target table went
func (d *DB) SetRunWriteOutcome(ctx context.Context, runID string, outcome db.WriteOutcome) error {
	at := outcome.At
	if at.IsZero() {
		at = time.Now()
	}

	tag, err := d.pool.Exec(ctx, `
		UPDATE allocation_run
		SET status = $2, written_count = $3, failed_count = $4, deleted_count = $5, write_message = $6, written_at = $7
		WHERE id = $1
	`, runID, string(outcome.Status), outcome.WrittenCount, outcome.FailedCount, outcome.DeletedCount, outcome.Message, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to update allocation run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allocation run %s not found", runID)
	}

	return nil
}

// GetRecentRuns retrieves the newest runs first
func (d *DB) GetRecentRuns(ctx context.Context, limit int) ([]db.AllocationRun, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, session_id, category, policy, total_requested, allocated_total, product_count, status,
		       created_at, written_count, failed_count, deleted_count, write_message, written_at
		FROM allocation_run
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation runs: %w", err)
	}
	defer rows.Close()

	var runs []db.AllocationRun
	for rows.Next() {
		var r db.AllocationRun
		var status string
		var writeMessage *string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Category, &r.Policy, &r.TotalRequested, &r.AllocatedTotal,
			&r.ProductCount, &status, &r.CreatedAt, &r.WrittenCount, &r.FailedCount, &r.DeletedCount,
			&writeMessage, &r.WrittenAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation run: %w", err)
		}
		r.Status = db.RunStatus(status)
		if writeMessage != nil {
			r.WriteMessage = *writeMessage
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation runs: %w", err)
	}

	return runs, nil
}
