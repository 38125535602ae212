package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// LoadCategoriesCmd creates the loadCategories command
func LoadCategoriesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "loadCategories",
		Short: "Load the category table (step 1)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return app.withState(func(state *services.WorkflowState) error {
				result, err := services.LoadCategories(app.Ctx, app.Store, app.Cfg, state, app.Logger)
				if err != nil {
					return fmt.Errorf("failed to load categories: %w", err)
				}

				fmt.Fprintf(out, "\n✅ Loaded %d category rows from %s\n", result.RowCount, app.Cfg.CategoryTable)
				fmt.Fprintf(out, "Found %d categories\n", len(result.Labels))
				if state.SelectedCategory != "" {
					fmt.Fprintf(out, "Selected category kept: %s\n", state.SelectedCategory)
				}
				fmt.Fprintln(out, "\nNext: listCategories, then selectCategory <label|index>")
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
