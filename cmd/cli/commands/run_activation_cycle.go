package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// RunActivationCycleCmd creates the runActivationCycle command
func RunActivationCycleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runActivationCycle",
		Short: "Run one waiting-list activation cycle",
		Long:  "Expire overdue response windows, then offer open seats on shifts inside the activation lead to the top of each waiting list. Intended to run from cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOfFlag, _ := cmd.Flags().GetString("as-of")

			asOf := app.Clock.Now().UTC()
			if asOfFlag != "" {
				parsed, err := time.Parse(time.RFC3339, asOfFlag)
				if err != nil {
					return fmt.Errorf("as-of must be RFC 3339: %w", err)
				}
				asOf = parsed
			}

			app.Logger.Debug("runActivationCycle command", zap.Time("as_of", asOf))

			result, err := services.RunActivationCycle(app.Ctx, app.Scheduler, app.Workflow, app.Logger, asOf)
			if err != nil {
				return fmt.Errorf("activation cycle failed: %w", err)
			}

			fmt.Printf("\n✓ Activation cycle complete\n\n")
			fmt.Printf("Shifts scanned:       %d\n", result.ShiftsScanned)
			fmt.Printf("Offers sent:          %d\n", result.EntriesActivated)
			fmt.Printf("Offers expired:       %d\n", result.EntriesExpired)
			fmt.Printf("Replacements expired: %d\n\n", result.ReplacementsExpired)

			return nil
		},
	}

	cmd.Flags().String("as-of", "", "Run the cycle as of this RFC 3339 instant instead of now")

	return cmd
}
