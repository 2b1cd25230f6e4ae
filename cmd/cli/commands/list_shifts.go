package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/acrivain/guardpost/pkg/core/services"
)

// ListShiftsCmd creates the listShifts command
func ListShiftsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listShifts",
		Short: "List upcoming shifts with occupancy and waiting-list depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			from := app.Clock.Now().UTC().Truncate(24 * time.Hour)
			until := from.AddDate(0, 0, days)

			summaries, err := services.ListShifts(app.Ctx, app.Database, app.Database, app.Logger, from, until)
			if err != nil {
				return fmt.Errorf("failed to list shifts: %w", err)
			}

			if len(summaries) == 0 {
				fmt.Printf("\nNo shifts between %s and %s\n\n",
					from.Format("2006-01-02"), until.Format("2006-01-02"))
				return nil
			}

			fmt.Printf("\n📅 Shifts %s to %s\n\n", from.Format("2006-01-02"), until.Format("2006-01-02"))
			fmt.Printf("%-38s %-12s %-12s %-10s %8s %8s\n",
				"ID", "Date", "Start", "Status", "Seats", "Waiting")
			for _, s := range summaries {
				seats := fmt.Sprintf("%d/%d", s.Shift.CurrentParticipants, s.Shift.MaxParticipants)
				status := string(s.Shift.Status)
				if s.Understaffed {
					status += " ⚠"
				}
				fmt.Printf("%-38s %-12s %-12s %-10s %8s %8d\n",
					s.Shift.ID,
					s.Shift.Date.Format("2006-01-02"),
					s.Shift.StartTime.Format("15:04"),
					status,
					seats,
					s.WaitingDepth)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().Int("days", 7, "How many days ahead to list")

	return cmd
}
