package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// StatusCmd creates the status command
func StatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current workflow step and loaded data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := app.StateStore.Load()
			if err != nil {
				return fmt.Errorf("failed to load workflow state: %w", err)
			}

			printStatus(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func printStatus(w io.Writer, state *services.WorkflowState) {
	orNone := func(s string) string {
		if s == "" {
			return colorDim + "none" + colorReset
		}
		return s
	}

	fmt.Fprintf(w, "\nSession:         %s\n", state.SessionID)
	fmt.Fprintf(w, "Step:            %s\n", state.Step)
	if state.CategoryRows == nil {
		fmt.Fprintf(w, "Category rows:   %snot loaded%s\n", colorDim, colorReset)
	} else {
		fmt.Fprintf(w, "Category rows:   %d\n", len(state.CategoryRows))
	}
	fmt.Fprintf(w, "Category:        %s\n", orNone(state.SelectedCategory))
	if state.ProductRows == nil {
		fmt.Fprintf(w, "Product rows:    %snot loaded%s\n", colorDim, colorReset)
	} else {
		fmt.Fprintf(w, "Product rows:    %d\n", len(state.ProductRows))
	}
	if state.Result != nil {
		fmt.Fprintf(w, "Allocation:      %d of %d units (%s)\n",
			state.Result.AllocatedTotal(), state.Result.TotalRequested, state.Result.Policy)
	} else {
		fmt.Fprintf(w, "Allocation:      %s\n", orNone(""))
	}
	fmt.Fprintf(w, "Run ID:          %s\n", orNone(state.RunID))
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:         %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)
}
