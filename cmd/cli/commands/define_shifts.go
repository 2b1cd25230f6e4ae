package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// DefineShiftsCmd creates the defineShifts command
func DefineShiftsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defineShifts [from]",
		Short: "Expand the configured shift templates into concrete shifts",
		Long:  "Expand every recurring shift template over the scheduling horizon, starting today or from the given date (YYYY-MM-DD). Already-defined shifts are skipped.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := app.Clock.Now().UTC().Truncate(24 * time.Hour)
			if len(args) == 1 {
				parsed, err := time.Parse("2006-01-02", args[0])
				if err != nil {
					return fmt.Errorf("from must be YYYY-MM-DD: %w", err)
				}
				from = parsed
			}

			app.Logger.Debug("defineShifts command", zap.Time("from", from))

			result, err := services.DefineShifts(app.Ctx, app.Database, app.Database, app.Cfg, app.Logger, from)
			if err != nil {
				return fmt.Errorf("shift definition failed: %w", err)
			}

			fmt.Printf("\n✓ Shift templates expanded\n\n")
			fmt.Printf("Created: %d\n", result.ShiftsCreated)
			fmt.Printf("Skipped: %d (already defined)\n", result.ShiftsSkipped)
			if result.ShiftsCreated > 0 {
				fmt.Printf("Range:   %s to %s\n",
					result.FirstDate.Format("2006-01-02"),
					result.LastDate.Format("2006-01-02"))
			}
			fmt.Println()

			return nil
		},
	}

	return cmd
}
