package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// LoadProductsCmd creates the loadProducts command
func LoadProductsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "loadProducts",
		Short: "Load the product table for the selected category (step 2)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return app.withState(func(state *services.WorkflowState) error {
				result, err := services.LoadProducts(app.Ctx, app.Store, app.Cfg, state, app.Logger)
				if err != nil {
					return fmt.Errorf("failed to load products: %w", err)
				}

				fmt.Fprintf(out, "\n✅ Loaded %d products from %s\n\n", result.RowCount, app.Cfg.ProductTable)
				printRowPreview(out, state.ProductRows, result.PreviewColumns, previewRowLimit)
				fmt.Fprintln(out, "\nNext: allocate [--policy moh|even] [--dry-run]")
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
