package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

// ShiftSummary is one row of the operator overview: occupancy against
// bounds plus the depth of the waiting list behind the shift.
type ShiftSummary struct {
	Shift        model.Shift
	WaitingDepth int
	Understaffed bool
}

// ListShifts returns summaries for all shifts starting in [from, until),
// ordered as the store returns them (chronological).
func ListShifts(
	ctx context.Context,
	shifts db.ShiftStore,
	entries db.WaitingListStore,
	logger *zap.Logger,
	from, until time.Time,
) ([]ShiftSummary, error) {
	listed, err := shifts.ListShiftsBetween(ctx, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	summaries := make([]ShiftSummary, 0, len(listed))
	for _, shift := range listed {
		depth, err := entries.CountPendingEntries(ctx, shift.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count waiting list for shift %s: %w", shift.ID, err)
		}
		summaries = append(summaries, ShiftSummary{
			Shift:        shift,
			WaitingDepth: depth,
			Understaffed: shift.Status != model.ShiftCancelled && shift.CurrentParticipants < shift.MinParticipants,
		})
	}

	logger.Debug("Listed shifts",
		zap.Int("count", len(summaries)),
		zap.Time("from", from),
		zap.Time("until", until))

	return summaries, nil
}
