package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/core/waitlist"
	"github.com/acrivain/guardpost/pkg/notify"
)

// RequestOutcome discriminates the result of an assignment request.
type RequestOutcome string

const (
	OutcomeConfirmed RequestOutcome = "confirmed"
	OutcomeQueued    RequestOutcome = "queued"
	OutcomeRejected  RequestOutcome = "rejected"
)

// RequestAssignmentResult reports how an assignment request was resolved.
type RequestAssignmentResult struct {
	Outcome      RequestOutcome
	AssignmentID string // set when confirmed
	EntryID      string // set when queued
	Reason       string // set when rejected
}

// RequestAssignment tries to seat the member on the shift; when the shift
// is full the member is queued on the waiting list instead.
func RequestAssignment(
	ctx context.Context,
	led *ledger.Ledger,
	queue *waitlist.Queue,
	notifier notify.Gateway,
	logger *zap.Logger,
	shiftID, slotID, memberID string,
) (*RequestAssignmentResult, error) {
	logger.Debug("Assignment requested",
		zap.String("shift_id", shiftID),
		zap.String("member_id", memberID))

	assignment, err := led.Create(ctx, shiftID, slotID, memberID, model.AssignmentVoluntary)
	if err == nil {
		notifier.Notify(ctx, memberID, notify.TemplateAssignmentConfirmed, map[string]string{
			"assignment_id": assignment.ID,
			"shift_id":      shiftID,
		})
		return &RequestAssignmentResult{
			Outcome:      OutcomeConfirmed,
			AssignmentID: assignment.ID,
		}, nil
	}

	switch {
	case errors.Is(err, capacity.ErrShiftFull):
		entry, qErr := queue.Enqueue(ctx, memberID, shiftID, slotID)
		if qErr != nil {
			if errors.Is(qErr, waitlist.ErrAlreadyQueued) {
				return &RequestAssignmentResult{
					Outcome: OutcomeRejected,
					Reason:  "already on the waiting list for this shift",
				}, nil
			}
			return nil, fmt.Errorf("failed to queue member after full shift: %w", qErr)
		}
		logger.Info("Shift full, member queued",
			zap.String("shift_id", shiftID),
			zap.String("member_id", memberID),
			zap.String("entry_id", entry.ID))
		return &RequestAssignmentResult{
			Outcome: OutcomeQueued,
			EntryID: entry.ID,
		}, nil

	case errors.Is(err, ledger.ErrDuplicateActive):
		return &RequestAssignmentResult{
			Outcome: OutcomeRejected,
			Reason:  "member already holds an active assignment for this shift",
		}, nil

	case errors.Is(err, capacity.ErrShiftNotAllocatable):
		return &RequestAssignmentResult{
			Outcome: OutcomeRejected,
			Reason:  "shift is not accepting participants",
		}, nil

	default:
		return nil, fmt.Errorf("failed to request assignment: %w", err)
	}
}
