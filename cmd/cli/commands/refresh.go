package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// RefreshCmd creates the refresh command
func RefreshCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the category and product tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return app.withState(func(state *services.WorkflowState) error {
				hadSelection := state.SelectedCategory != ""
				result, err := services.RefreshTables(app.Ctx, app.Store, app.Cfg, state, app.Logger)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "\n✅ Refreshed tables\n\n")
				fmt.Fprintf(out, "Category rows: %d\n", result.CategoryCount)
				fmt.Fprintf(out, "Product rows:  %d\n", result.ProductCount)
				if hadSelection && !result.SelectionKept {
					fmt.Fprintf(out, "%sThe selected category is no longer present, select a category again%s\n", colorYellow, colorReset)
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
