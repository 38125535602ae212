package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// WriteResultsCmd creates the writeResults command
func WriteResultsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "writeResults",
		Short: "Overwrite the target table with the current allocation (step 4)",
		Long: `Overwrite the target table with the current allocation.

Every existing record in the target table is deleted before the allocated
rows are written. You will be asked to confirm unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			out := cmd.OutOrStdout()

			return app.withState(func(state *services.WorkflowState) error {
				if state.Result == nil {
					return services.ErrNoAllocation
				}

				if !yes {
					prompt := fmt.Sprintf("⚠️  This deletes every record in %s and writes %d rows for %s. Continue? [y/N]: ",
						app.Cfg.TargetTable, len(state.Result.Products), state.SelectedCategory)
					ok, err := confirm(cmd.InOrStdin(), out, prompt)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "Cancelled, nothing was written.")
						return nil
					}
				}

				result, err := services.WriteResults(app.Ctx, app.Store, app.History, app.Cfg, state, app.Logger)
				if err != nil {
					return err
				}

				printWriteResult(out, result)
				if !result.Success {
					return fmt.Errorf("write to %s failed", app.Cfg.TargetTable)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// confirm asks a yes/no question and reads a single line answer. A buffered
// reader is read from directly so that input after the answer stays in it.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)

	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
	}

	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
