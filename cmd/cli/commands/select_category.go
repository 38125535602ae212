package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// SelectCategoryCmd creates the selectCategory command
func SelectCategoryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "selectCategory <label|index>",
		Short: "Select the category to allocate (label or number from listCategories)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return app.withState(func(state *services.WorkflowState) error {
				result, err := services.SelectCategory(app.Cfg, state, app.Logger, args[0])
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "\n✅ Selected category: %s\n", result.Label)
				if result.Changed {
					fmt.Fprintf(out, "%sPrevious products and allocation were cleared%s\n", colorYellow, colorReset)
				}

				fmt.Fprintf(out, "\n📋 %d category rows:\n\n", len(result.Rows))
				printRowPreview(out, result.Rows, result.PreviewColumns, previewRowLimit)
				fmt.Fprintln(out, "\nNext: loadProducts")
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
