package services

import (
	"context"

	"github.com/jakechorley/category-allocator/pkg/core/model"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

// RowFetcher reads whole tables from the record store
type RowFetcher interface {
	FetchAll(ctx context.Context, table model.TableRef) ([]model.Row, error)
}

// RowWriter replaces whole tables in the record store
type RowWriter interface {
	ClearAndOverwrite(ctx context.Context, table model.TableRef, rows []model.Row) (*recordstore.WriteResult, error)
}

// CategoryPreviewColumns are shown for the selected category, in this order, when present
var CategoryPreviewColumns = []string{
	"Tên danh mục", "Mã danh mục", "Danh mục cha", "Số lượng cần", "Tổng lượng hàng",
	"Tồn hiện tại", "Tồn chuyển kho", "SL sản xuất tái", "SL sản xuất mới",
	"Target SL bán tháng hiện tại", "SL bán dự kiến tháng hiện tại", "SL bán tháng hiện tại",
}

// ProductPreviewColumns are shown for the loaded product list, in this order, when present
var ProductPreviewColumns = []string{
	"Tên sản phẩm", "Màu", "MOH", "SL bán", "Tổng lượng hàng", "Tồn hiện tại",
	"Tồn chuyển kho", "SL sản xuất tái", "SL sản xuất mới", "SL phân bổ", "SL phân bổ điều chỉnh",
}

// PresentColumns returns the candidates that at least one row carries, keeping candidate order
func PresentColumns(rows []model.Row, candidates []string) []string {
	present := make([]string, 0, len(candidates))
	for _, column := range candidates {
		if model.HasColumn(rows, column) {
			present = append(present, column)
		}
	}
	return present
}
