package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// CancelAssignmentCmd creates the cancelAssignment command
func CancelAssignmentCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancelAssignment <assignment_id>",
		Short: "Cancel an assignment and classify the cancellation",
		Long:  "Cancel an assignment. Cancellations inside the 72-hour window that drop a shift below its minimum open a replacement request when a candidate is given with --candidate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignmentID := args[0]
			reason, _ := cmd.Flags().GetString("reason")
			candidate, _ := cmd.Flags().GetString("candidate")

			app.Logger.Debug("cancelAssignment command",
				zap.String("assignment_id", assignmentID),
				zap.String("candidate", candidate))

			result, err := services.CancelAssignment(app.Ctx, app.Ledger, app.Workflow, app.Notifier, app.Logger, assignmentID, reason, candidate)
			if err != nil {
				return fmt.Errorf("cancellation failed: %w", err)
			}

			if !result.Found {
				fmt.Printf("\n❌ No active assignment with ID %s\n\n", assignmentID)
				return nil
			}

			fmt.Printf("\n✓ Assignment cancelled\n\n")
			fmt.Printf("Classification: %s\n", result.Band)
			if result.ReplacementWorkflowID != "" {
				fmt.Printf("Replacement:    requested (workflow %s)\n", result.ReplacementWorkflowID)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().String("reason", "", "Why the member is cancelling")
	cmd.Flags().String("candidate", "", "Member to ask as a replacement when coverage is threatened")

	return cmd
}
