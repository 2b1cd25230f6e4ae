package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// RequestAssignmentCmd creates the requestAssignment command
func RequestAssignmentCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requestAssignment <shift_id> <member_id>",
		Short: "Request a seat on a shift for a member",
		Long:  "Seat the member on the shift if capacity allows; a full shift queues the member on the waiting list instead.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID, memberID := args[0], args[1]
			slotID, _ := cmd.Flags().GetString("slot")

			app.Logger.Debug("requestAssignment command",
				zap.String("shift_id", shiftID),
				zap.String("member_id", memberID))

			result, err := services.RequestAssignment(app.Ctx, app.Ledger, app.Queue, app.Notifier, app.Logger, shiftID, slotID, memberID)
			if err != nil {
				return fmt.Errorf("assignment request failed: %w", err)
			}

			switch result.Outcome {
			case services.OutcomeConfirmed:
				fmt.Printf("\n✅ Seat confirmed\n\nAssignment ID: %s\n\n", result.AssignmentID)
			case services.OutcomeQueued:
				fmt.Printf("\n⏳ Shift full, member queued\n\nEntry ID: %s\n\n", result.EntryID)
			case services.OutcomeRejected:
				fmt.Printf("\n❌ Request rejected: %s\n\n", result.Reason)
			}

			return nil
		},
	}

	cmd.Flags().String("slot", "", "Target slot within the shift")

	return cmd
}
