package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// RespondReplacementCmd creates the respondReplacement command
func RespondReplacementCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "respondReplacement <workflow_id> <accept|decline>",
		Short: "Record a candidate's answer to a replacement request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]
			accept, err := parseAnswer(args[1])
			if err != nil {
				return err
			}

			app.Logger.Debug("respondReplacement command",
				zap.String("workflow_id", workflowID),
				zap.Bool("accept", accept))

			outcome, err := services.RespondToReplacement(app.Ctx, app.Workflow, app.Logger, workflowID, accept)
			if err != nil {
				return fmt.Errorf("replacement response failed: %w", err)
			}

			switch outcome {
			case services.ReplacementAccepted:
				fmt.Printf("\n✅ Replacement accepted, candidate seated on the shift\n\n")
			case services.ReplacementRejected:
				fmt.Printf("\n✓ Replacement declined, seat returned to the pool\n\n")
			case services.ReplacementExpired:
				fmt.Printf("\n⌛ Response window closed; seat already returned to the pool\n\n")
			case services.ReplacementNotFound:
				fmt.Printf("\n❌ No replacement workflow with ID %s\n\n", workflowID)
			}

			return nil
		},
	}

	return cmd
}
