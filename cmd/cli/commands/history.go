package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
	"github.com/jakechorley/category-allocator/pkg/db"
)

const defaultHistoryCount = 10

// HistoryCmd creates the history command
func HistoryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history [count]",
		Short: "Show recent allocation runs (defaults to the last 10)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := defaultHistoryCount
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("count must be a positive number, got %q", args[0])
				}
				count = n
			}

			runs, err := services.ListHistory(app.Ctx, app.History, app.Logger, count)
			if err != nil {
				return err
			}

			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
}

func printHistory(w io.Writer, runs []db.AllocationRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "\nNo allocation runs recorded yet.")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "\n%-19s  %-20s  %-6s  %9s  %9s  %8s  %-10s\n",
		"Created", "Category", "Policy", "Requested", "Allocated", "Products", "Status")
	fmt.Fprintln(w, "-------------------  --------------------  ------  ---------  ---------  --------  ----------")

	for _, run := range runs {
		fmt.Fprintf(w, "%-19s  %-20s  %-6s  %9d  %9d  %8d  %s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			clip(run.Category),
			run.Policy,
			run.TotalRequested,
			run.AllocatedTotal,
			run.ProductCount,
			statusLabel(run.Status),
		)
	}
	fmt.Fprintln(w)
}

func statusLabel(status db.RunStatus) string {
	switch status {
	case db.RunStatusWritten:
		return colorGreen + string(status) + colorReset
	case db.RunStatusPartial:
		return colorYellow + string(status) + colorReset
	case db.RunStatusFailed:
		return colorRed + string(status) + colorReset
	case db.RunStatusDryRun:
		return colorDim + string(status) + colorReset
	}
	return string(status)
}
