package sheetsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jakechorley/category-allocator/pkg/core/model"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

// tabRange returns an A1 range covering a whole tab, quoting the title so
// names with spaces or punctuation are accepted
func tabRange(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// FetchAll reads a tab as rows keyed by the header in its first row
func (c *Client) FetchAll(ctx context.Context, table model.TableRef) ([]model.Row, error) {
	values, err := c.GetValues(ctx, table.DatasetID, tabRange(table.TableID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}

	return rowsFromValues(values), nil
}

// ClearAndOverwrite replaces the contents of a tab with rows. The existing
// header order is kept and columns that are new are appended in sorted order.
// The tab is created when it does not exist yet.
func (c *Client) ClearAndOverwrite(ctx context.Context, table model.TableRef, rows []model.Row) (*recordstore.WriteResult, error) {
	spreadsheetID, tab := table.DatasetID, table.TableID

	exists, err := c.HasSheet(ctx, spreadsheetID, tab)
	if err != nil {
		return nil, err
	}

	var existing [][]interface{}
	if exists {
		existing, err = c.GetValues(ctx, spreadsheetID, tabRange(tab))
		if err != nil {
			return nil, fmt.Errorf("failed to read existing rows in %s: %w", table, err)
		}
	} else if _, err := c.CreateSheet(ctx, spreadsheetID, tab); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", table, err)
	}

	var existingHeader []string
	deleted := 0
	if len(existing) > 0 {
		existingHeader = headerFromValues(existing[0])
		deleted = len(existing) - 1
	}

	cleaned := recordstore.CleanRows(rows)
	header := mergeHeader(existingHeader, cleaned)

	if exists {
		if err := c.ClearValues(ctx, spreadsheetID, tabRange(tab)); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if len(header) > 0 {
		headerRow := make([]interface{}, len(header))
		for i, name := range header {
			headerRow[i] = name
		}
		if err := c.UpdateValues(ctx, spreadsheetID, tabRange(tab)+"!A1", [][]interface{}{headerRow}); err != nil {
			return nil, fmt.Errorf("failed to write header to %s: %w", table, err)
		}
	}

	result := recordstore.WriteBatches(ctx, table, cleaned, c.batchSize, func(ctx context.Context, batch []model.Row) error {
		return c.AppendRows(ctx, spreadsheetID, tabRange(tab)+"!A1", valuesFromRows(header, batch))
	})
	result.DeletedCount = deleted

	return result, nil
}

func headerFromValues(row []interface{}) []string {
	header := make([]string, len(row))
	for i, cell := range row {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}
	return header
}

// rowsFromValues converts a grid whose first row is the header into rows.
// Empty cells are omitted and rows with no values are skipped.
func rowsFromValues(values [][]interface{}) []model.Row {
	if len(values) == 0 {
		return []model.Row{}
	}

	header := headerFromValues(values[0])
	rows := make([]model.Row, 0, len(values)-1)

	for _, raw := range values[1:] {
		row := model.Row{}
		for i, cell := range raw {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if s, ok := cell.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			if cell == nil {
				continue
			}
			row[header[i]] = cell
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	return rows
}

// mergeHeader keeps the existing column order and appends any new fields in sorted order
func mergeHeader(existing []string, rows []model.Row) []string {
	seen := make(map[string]bool, len(existing))
	header := make([]string, 0, len(existing))
	for _, name := range existing {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		header = append(header, name)
	}

	var added []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				added = append(added, key)
			}
		}
	}
	sort.Strings(added)

	return append(header, added...)
}

// valuesFromRows lays rows out in header order. Values the Sheets API cannot
// hold directly (lists, linked records) are written as display text.
func valuesFromRows(header []string, rows []model.Row) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		line := make([]interface{}, len(header))
		for j, name := range header {
			line[j] = cellValue(row, name)
		}
		values[i] = line
	}
	return values
}

func cellValue(row model.Row, field string) interface{} {
	switch v := row[field].(type) {
	case nil:
		return ""
	case string, bool, float64, float32, int, int32, int64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	}
	return row.Text(field)
}
