// Package replacement runs the time-boxed search for a substitute after a
// cancellation threatens minimum coverage. The cancelled seat stays
// reserved while a workflow is pending; accepting adopts the seat for the
// candidate, rejecting or timing out returns it to the pool.
package replacement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

// ErrDeadlineExpired is returned when a response arrives after the
// workflow's deadline. Non-fatal: the workflow is expired and the seat
// released.
var ErrDeadlineExpired = errors.New("replacement response deadline has passed")

// ResponseWindow is how long a candidate has to answer a replacement
// request.
const ResponseWindow = 4 * time.Hour

// Workflow manages replacement searches.
type Workflow struct {
	replacements db.ReplacementStore
	ledger       *ledger.Ledger
	capacity     *capacity.Store
	clock        clock.Clock
	logger       *zap.Logger
}

// New creates a replacement workflow manager.
func New(replacements db.ReplacementStore, led *ledger.Ledger, seats *capacity.Store, clk clock.Clock, logger *zap.Logger) *Workflow {
	return &Workflow{
		replacements: replacements,
		ledger:       led,
		capacity:     seats,
		clock:        clk,
		logger:       logger,
	}
}

// Open starts a replacement search for a cancelled assignment whose seat is
// still held. The candidate has ResponseWindow from now to answer.
func (w *Workflow) Open(ctx context.Context, cancelled *model.Assignment, candidateMemberID string) (*model.Replacement, error) {
	if cancelled.Status != model.AssignmentCancelled {
		return nil, fmt.Errorf("replacement requires a cancelled assignment, got %s", cancelled.Status)
	}

	now := w.clock.Now()
	r := &model.Replacement{
		ID:                uuid.New().String(),
		AssignmentID:      cancelled.ID,
		ShiftID:           cancelled.ShiftID,
		SlotID:            cancelled.SlotID,
		CandidateMemberID: candidateMemberID,
		Deadline:          now.Add(ResponseWindow),
		Status:            model.ReplacementPending,
		RequestedAt:       now,
	}

	if err := w.replacements.InsertReplacement(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to open replacement workflow: %w", err)
	}

	w.logger.Info("Replacement workflow opened",
		zap.String("workflow_id", r.ID),
		zap.String("shift_id", r.ShiftID),
		zap.String("candidate_member_id", candidateMemberID),
		zap.Time("deadline", r.Deadline))

	return r, nil
}

// Respond settles a pending workflow with the candidate's answer. The
// returned status is the workflow's final state: accepting before the
// deadline creates a confirmed assignment on the held seat; rejecting, or
// answering after the deadline, releases the seat.
func (w *Workflow) Respond(ctx context.Context, workflowID string, accept bool) (model.ReplacementStatus, error) {
	r, err := w.replacements.GetReplacement(ctx, workflowID)
	if err != nil {
		return "", err
	}
	if r.Status.Terminal() {
		return r.Status, nil
	}

	now := w.clock.Now()
	if now.After(r.Deadline) {
		if err := w.expire(ctx, &r); err != nil {
			return "", err
		}
		return model.ReplacementExpired, ErrDeadlineExpired
	}

	if !accept {
		return w.settle(ctx, &r, model.ReplacementRejected, true)
	}

	_, err = w.ledger.AdoptSeat(ctx, r.ShiftID, r.SlotID, r.CandidateMemberID, model.AssignmentAssigned)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateActive) {
			// Candidate is already covering the shift; treat as a
			// rejection and free the held seat
			w.logger.Warn("Replacement candidate already assigned, rejecting",
				zap.String("workflow_id", r.ID),
				zap.String("candidate_member_id", r.CandidateMemberID))
			return w.settle(ctx, &r, model.ReplacementRejected, true)
		}
		return "", fmt.Errorf("failed to assign replacement: %w", err)
	}

	return w.settle(ctx, &r, model.ReplacementAccepted, false)
}

// Sweep expires every pending workflow whose deadline has passed,
// releasing the held seats. Returns the number of workflows expired.
func (w *Workflow) Sweep(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := w.replacements.OverduePendingReplacements(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue replacements: %w", err)
	}
	for i := range overdue {
		if err := w.expire(ctx, &overdue[i]); err != nil {
			return i, err
		}
	}
	return len(overdue), nil
}

func (w *Workflow) expire(ctx context.Context, r *model.Replacement) error {
	_, err := w.settle(ctx, r, model.ReplacementExpired, true)
	return err
}

// settle finalizes the workflow; releaseSeat returns the held seat to the
// pool for rejected and expired outcomes.
func (w *Workflow) settle(ctx context.Context, r *model.Replacement, status model.ReplacementStatus, releaseSeat bool) (model.ReplacementStatus, error) {
	now := w.clock.Now()
	r.Status = status
	r.RespondedAt = &now
	if err := w.replacements.UpdateReplacement(ctx, r); err != nil {
		return "", fmt.Errorf("failed to settle replacement workflow: %w", err)
	}

	if releaseSeat {
		if err := w.capacity.Release(ctx, r.ShiftID, r.SlotID); err != nil {
			return "", fmt.Errorf("failed to release held seat: %w", err)
		}
	}

	w.logger.Info("Replacement workflow settled",
		zap.String("workflow_id", r.ID),
		zap.String("status", string(status)),
		zap.Bool("seat_released", releaseSeat))

	return status, nil
}
