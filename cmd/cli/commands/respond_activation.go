package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// RespondActivationCmd creates the respondActivation command
func RespondActivationCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "respondActivation <entry_id> <accept|decline>",
		Short: "Record a member's answer to a waiting-list activation offer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID := args[0]
			accept, err := parseAnswer(args[1])
			if err != nil {
				return err
			}

			app.Logger.Debug("respondActivation command",
				zap.String("entry_id", entryID),
				zap.Bool("accept", accept))

			outcome, err := services.RespondToActivation(app.Ctx, app.Scheduler, app.Logger, entryID, accept)
			if err != nil {
				return fmt.Errorf("activation response failed: %w", err)
			}

			switch outcome {
			case services.ActivationAssigned:
				fmt.Printf("\n✅ Offer accepted, member seated on the shift\n\n")
			case services.ActivationExpired:
				fmt.Printf("\n⌛ Offer no longer stands; the seat moved on\n\n")
			case services.ActivationNotFound:
				fmt.Printf("\n❌ No outstanding offer for entry %s\n\n", entryID)
			}

			return nil
		},
	}

	return cmd
}

func parseAnswer(s string) (bool, error) {
	switch s {
	case "accept":
		return true, nil
	case "decline":
		return false, nil
	default:
		return false, fmt.Errorf("answer must be accept or decline, got %q", s)
	}
}
