package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate the selected category's quantity across the loaded products (step 3)",
		Long: `Allocate the selected category's required quantity across the loaded products.

Policies:
  moh   give units one at a time to the product with the lowest months of inventory
  even  split the total evenly, at least one unit per product

Use --dry-run to preview the allocation without keeping it for writeResults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policyFlag, _ := cmd.Flags().GetString("policy")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			policy := allocator.Policy(policyFlag)
			if policy != "" && !policy.IsValid() {
				return fmt.Errorf("unknown policy %q (expected moh or even)", policyFlag)
			}

			app.Logger.Debug("allocate command",
				zap.String("policy", policyFlag),
				zap.Bool("dry_run", dryRun))

			out := cmd.OutOrStdout()

			return app.withState(func(state *services.WorkflowState) error {
				result, err := services.AllocateCategory(app.Ctx, app.History, app.Cfg, state, app.Logger, policy, dryRun)
				if err != nil {
					return err
				}

				if result.DryRun {
					fmt.Fprintf(out, "\n🔍 Allocation preview (dry run, nothing kept)\n\n")
				} else {
					fmt.Fprintf(out, "\n✅ Allocation computed\n\n")
				}
				printAllocationSummary(out, state.SelectedCategory, result.Result.Policy, result.Stats)
				if result.RunID != "" {
					fmt.Fprintf(out, "Run ID:          %s\n", result.RunID)
				}
				fmt.Fprintln(out)

				printAllocationTable(out, app.Cfg, result.Result)

				if !result.DryRun {
					fmt.Fprintln(out, "\nNext: writeResults")
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().String("policy", "", "Allocation policy: moh or even (defaults to the configured policy)")
	cmd.Flags().Bool("dry-run", false, "Preview the allocation without keeping it")

	return cmd
}

func printAllocationTable(w io.Writer, cfg *config.Config, result *allocator.Result) {
	fmt.Fprintf(w, "%-4s  %-30s  %10s  %10s  %10s\n", "#", "Product", "Sales", "Stock", "Allocated")
	fmt.Fprintln(w, "----  ------------------------------  ----------  ----------  ----------")

	for i, p := range result.Products {
		if i == previewRowLimit {
			fmt.Fprintf(w, "%s... and %d more products%s\n", colorDim, len(result.Products)-i, colorReset)
			break
		}

		name := clip(p.Row.Text(cfg.Fields.ProductName))
		if name == "" {
			name = "—"
		}
		allocated := fmt.Sprintf("%10d", p.AllocatedQuantity)
		if p.AllocatedQuantity > 0 {
			allocated = colorGreen + allocated + colorReset
		}
		fmt.Fprintf(w, "%-4d  %-30s  %10.2f  %10.2f  %s\n", i+1, name, p.SalesRate, p.TotalStock, allocated)
	}
}
