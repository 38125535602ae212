package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/model"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"

	previewRowLimit = 20
	maxCellWidth    = 24
)

// printRowPreview prints up to limit rows as a fixed-width table of the given columns
func printRowPreview(w io.Writer, rows []model.Row, columns []string, limit int) {
	if len(columns) == 0 {
		fmt.Fprintf(w, "%s(no preview columns present)%s\n", colorDim, colorReset)
		return
	}

	shown := rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	cells := make([][]string, len(shown))
	widths := make([]int, len(columns))
	for i, column := range columns {
		widths[i] = len([]rune(clip(column)))
	}
	for r, row := range shown {
		cells[r] = make([]string, len(columns))
		for i, column := range columns {
			text := clip(row.Text(column))
			if text == "" {
				text = "—"
			}
			cells[r][i] = text
			widths[i] = max(widths[i], len([]rune(text)))
		}
	}

	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, column := range columns {
		header[i] = fmt.Sprintf("%-*s", widths[i], clip(column))
		rule[i] = strings.Repeat("-", widths[i])
	}
	fmt.Fprintln(w, strings.Join(header, "  "))
	fmt.Fprintln(w, strings.Join(rule, "  "))

	for _, row := range cells {
		line := make([]string, len(row))
		for i, text := range row {
			line[i] = fmt.Sprintf("%-*s", widths[i], text)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(line, "  "), " "))
	}

	if hidden := len(rows) - len(shown); hidden > 0 {
		fmt.Fprintf(w, "%s... and %d more rows%s\n", colorDim, hidden, colorReset)
	}
}

func clip(text string) string {
	runes := []rune(text)
	if len(runes) <= maxCellWidth {
		return text
	}
	return string(runes[:maxCellWidth-1]) + "…"
}

// printAllocationSummary prints the headline numbers of an allocation
func printAllocationSummary(w io.Writer, category string, policy allocator.Policy, stats allocator.Stats) {
	fmt.Fprintf(w, "Category:        %s\n", category)
	fmt.Fprintf(w, "Policy:          %s\n", policy)
	fmt.Fprintf(w, "Total requested: %d\n", stats.TotalRequested)
	fmt.Fprintf(w, "Products:        %d\n", stats.ProductCount)
	fmt.Fprintf(w, "Allocated total: %d\n", stats.AllocatedTotal)
	if stats.ProductCount > 0 {
		fmt.Fprintf(w, "Mean:            %.2f\n", stats.Mean)
		fmt.Fprintf(w, "Range:           %d–%d\n", stats.Min, stats.Max)
	}
	if stats.AllocatedTotal != stats.TotalRequested {
		fmt.Fprintf(w, "%s⚠️  Allocated total differs from requested total%s\n", colorYellow, colorReset)
	}
}

// printWriteResult prints the outcome of a table overwrite
func printWriteResult(w io.Writer, result *recordstore.WriteResult) {
	switch {
	case result.Success && result.ErrorCount == 0:
		fmt.Fprintf(w, "\n%s✅ %s%s\n\n", colorGreen, result.Message, colorReset)
	case result.Success:
		fmt.Fprintf(w, "\n%s⚠️  %s%s\n\n", colorYellow, result.Message, colorReset)
	default:
		fmt.Fprintf(w, "\n%s❌ %s%s\n\n", colorRed, result.Message, colorReset)
	}

	fmt.Fprintf(w, "Deleted: %d\n", result.DeletedCount)
	fmt.Fprintf(w, "Written: %d\n", result.SuccessCount)
	fmt.Fprintf(w, "Failed:  %d\n", result.ErrorCount)

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  ✗ %s\n", e)
		}
	}
	fmt.Fprintln(w)
}
