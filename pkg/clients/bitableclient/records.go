package bitableclient

import (
	"context"
	"errors"
	"fmt"

	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"

	"github.com/jakechorley/category-allocator/pkg/core/model"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

// pageSize is the maximum page size the list endpoint accepts
const pageSize = 100

// ListRecords returns every record in the table, following page tokens
func (c *Client) ListRecords(ctx context.Context, table model.TableRef) ([]*larkbitable.AppTableRecord, error) {
	var records []*larkbitable.AppTableRecord
	pageToken := ""

	for {
		builder := larkbitable.NewListAppTableRecordReqBuilder().
			AppToken(table.DatasetID).
			TableId(table.TableID).
			PageSize(pageSize)
		if pageToken != "" {
			builder = builder.PageToken(pageToken)
		}

		resp, err := c.lark.Bitable.V1.AppTableRecord.List(ctx, builder.Build())
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		if !resp.Success() {
			return nil, &APIError{Op: "list records", Code: resp.Code, Msg: resp.Msg}
		}
		if resp.Data == nil {
			return records, nil
		}
		records = append(records, resp.Data.Items...)

		if !deref(resp.Data.HasMore) {
			return records, nil
		}
		next := deref(resp.Data.PageToken)
		if next == "" || next == pageToken {
			return nil, errors.New("list records: has_more set without a new page token")
		}
		pageToken = next
	}
}

// FetchAll returns the fields of every record in the table
func (c *Client) FetchAll(ctx context.Context, table model.TableRef) ([]model.Row, error) {
	records, err := c.ListRecords(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}

	rows := make([]model.Row, 0, len(records))
	for _, record := range records {
		row := model.Row{}
		if record != nil {
			for field, value := range record.Fields {
				row[field] = value
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// BatchCreate inserts rows in a single request
func (c *Client) BatchCreate(ctx context.Context, table model.TableRef, rows []model.Row) error {
	records := make([]*larkbitable.AppTableRecord, len(rows))
	for i, row := range rows {
		records[i] = larkbitable.NewAppTableRecordBuilder().
			Fields(map[string]interface{}(row)).
			Build()
	}

	req := larkbitable.NewBatchCreateAppTableRecordReqBuilder().
		AppToken(table.DatasetID).
		TableId(table.TableID).
		Body(larkbitable.NewBatchCreateAppTableRecordReqBodyBuilder().
			Records(records).
			Build()).
		Build()

	resp, err := c.lark.Bitable.V1.AppTableRecord.BatchCreate(ctx, req)
	if err != nil {
		return fmt.Errorf("batch create: %w", err)
	}
	if !resp.Success() {
		return &APIError{Op: "batch create", Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

// BatchDelete removes records by ID in a single request
func (c *Client) BatchDelete(ctx context.Context, table model.TableRef, recordIDs []string) error {
	req := larkbitable.NewBatchDeleteAppTableRecordReqBuilder().
		AppToken(table.DatasetID).
		TableId(table.TableID).
		Body(larkbitable.NewBatchDeleteAppTableRecordReqBodyBuilder().
			Records(recordIDs).
			Build()).
		Build()

	resp, err := c.lark.Bitable.V1.AppTableRecord.BatchDelete(ctx, req)
	if err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	if !resp.Success() {
		return &APIError{Op: "batch delete", Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

// ClearAndOverwrite deletes every record in the table and then inserts rows.
// A failed delete aborts before anything is written. Failed create batches
// are reported in the result and the remaining batches are still attempted.
func (c *Client) ClearAndOverwrite(ctx context.Context, table model.TableRef, rows []model.Row) (*recordstore.WriteResult, error) {
	existing, err := c.ListRecords(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing records in %s: %w", table, err)
	}

	ids := make([]string, 0, len(existing))
	for _, record := range existing {
		if record == nil {
			continue
		}
		if id := deref(record.RecordId); id != "" {
			ids = append(ids, id)
		}
	}

	deleted := 0
	for _, batch := range recordstore.Batches(ids, c.batchSize) {
		if err := c.BatchDelete(ctx, table, batch); err != nil {
			return nil, fmt.Errorf("failed to clear %s after deleting %d of %d records: %w", table, deleted, len(ids), err)
		}
		deleted += len(batch)
	}

	cleaned := recordstore.CleanRows(rows)
	result := recordstore.WriteBatches(ctx, table, cleaned, c.batchSize, func(ctx context.Context, batch []model.Row) error {
		return c.BatchCreate(ctx, table, batch)
	})
	result.DeletedCount = deleted

	return result, nil
}
