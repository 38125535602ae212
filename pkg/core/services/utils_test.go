package services

import (
	"context"
	"errors"
	"sync"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/model"
	"github.com/jakechorley/category-allocator/pkg/db"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

var (
	categoryTable = model.TableRef{DatasetID: "app", TableID: "tblCategories"}
	productTable  = model.TableRef{DatasetID: "app", TableID: "tblProducts"}
	targetTable   = model.TableRef{DatasetID: "app", TableID: "tblTarget"}
)

func testConfig() *config.Config {
	return &config.Config{
		Backend:       config.BackendSheets,
		CategoryTable: categoryTable,
		ProductTable:  productTable,
		TargetTable:   targetTable,
		Fields:        config.DefaultFieldNames(),
		Policy:        allocator.PolicyMOH,
		TotalRounding: allocator.RoundingTruncate,
		BatchSize:     100,
	}
}

func testCategoryRows() []model.Row {
	return []model.Row{
		{"Tên danh mục": "Áo thun", "Mã danh mục": "AO-01", "Số lượng cần": 6.0, "SL bán dự kiến 6/2025": 7.0},
		{"Tên danh mục": "Áo thun", "Mã danh mục": []any{"AO-01", "AO-02"}, "Số lượng cần": 4.5, "SL bán dự kiến 6/2025": 3.0},
		{"Tên danh mục": "Quần", "Mã danh mục": "QU-01", "Số lượng cần": 100.0},
	}
}

func testProductRows() []model.Row {
	return []model.Row{
		{"Tên sản phẩm": "Áo A", "Tổng lượng hàng": 10.0, "SL bán": 5.0},
		{"Tên sản phẩm": "Áo B", "Tổng lượng hàng": 20.0, "SL bán": 4.0},
		{"Tên sản phẩm": "Áo C", "Tổng lượng hàng": 3.0, "SL bán": 0.0},
	}
}

// mockStore implements RowFetcher and RowWriter
type mockStore struct {
	mu      sync.Mutex
	tables  map[model.TableRef][]model.Row
	errs    map[model.TableRef]error
	fetched []model.TableRef

	written     []model.Row
	writeResult *recordstore.WriteResult
	writeErr    error
}

func newMockStore() *mockStore {
	return &mockStore{
		tables: map[model.TableRef][]model.Row{
			categoryTable: testCategoryRows(),
			productTable:  testProductRows(),
		},
		errs: map[model.TableRef]error{},
	}
}

func (m *mockStore) FetchAll(ctx context.Context, table model.TableRef) ([]model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetched = append(m.fetched, table)
	if err := m.errs[table]; err != nil {
		return nil, err
	}
	rows, ok := m.tables[table]
	if !ok {
		return nil, errors.New("table not found")
	}
	return model.CloneRows(rows), nil
}

func (m *mockStore) ClearAndOverwrite(ctx context.Context, table model.TableRef, rows []model.Row) (*recordstore.WriteResult, error) {
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.written = rows
	if m.writeResult != nil {
		return m.writeResult, nil
	}
	return &recordstore.WriteResult{Success: true, SuccessCount: len(rows), Message: "ok"}, nil
}

// mockHistory implements db.HistoryStore
type mockHistory struct {
	runs      []*db.AllocationRun
	outcomes  map[string]db.WriteOutcome
	insertErr error
}

func newMockHistory() *mockHistory {
	return &mockHistory{outcomes: map[string]db.WriteOutcome{}}
}

func (m *mockHistory) InsertRun(ctx context.Context, run *db.AllocationRun) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockHistory) SetRunWriteOutcome(ctx context.Context, runID string, outcome db.WriteOutcome) error {
	m.outcomes[runID] = outcome
	return nil
}

func (m *mockHistory) GetRecentRuns(ctx context.Context, limit int) ([]db.AllocationRun, error) {
	var runs []db.AllocationRun
	for i := len(m.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, *m.runs[i])
	}
	return runs, nil
}
