package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// ResetCmd creates the reset command
func ResetCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard loaded tables, the selection and any allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := services.ResetWorkflow(app.StateStore, app.Logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Workflow reset, new session %s\n\n", state.SessionID)
			return nil
		},
	}
}
