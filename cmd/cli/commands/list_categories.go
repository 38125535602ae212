package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// ListCategoriesCmd creates the listCategories command
func ListCategoriesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listCategories",
		Short: "List the category labels of the loaded category table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := app.StateStore.Load()
			if err != nil {
				return fmt.Errorf("failed to load workflow state: %w", err)
			}

			labels, err := services.ListCategories(app.Cfg, state)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d categories:\n\n", len(labels))
			for i, label := range labels {
				marker := " "
				if label == state.SelectedCategory {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %3d. %s\n", marker, i+1, label)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
