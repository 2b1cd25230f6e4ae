// Package ledger manages the lifecycle of member-to-shift assignments:
// create, cancel, check-in, complete. It is the only writer of assignment
// records and drives capacity reservations through the capacity store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/core/policy"
	"github.com/acrivain/guardpost/pkg/db"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

var (
	// ErrDuplicateActive is returned when the member already holds an
	// active assignment for the same shift or slot.
	ErrDuplicateActive = errors.New("member already has an active assignment for this shift")

	// ErrInvalidTransition is returned when an operation is not allowed
	// from the assignment's current status.
	ErrInvalidTransition = errors.New("invalid assignment state transition")
)

// Ledger owns assignment state transitions.
type Ledger struct {
	assignments db.AssignmentStore
	shifts      db.ShiftStore
	capacity    *capacity.Store
	clock       clock.Clock
	logger      *zap.Logger
}

// New creates an assignment ledger.
func New(assignments db.AssignmentStore, shifts db.ShiftStore, seats *capacity.Store, clk clock.Clock, logger *zap.Logger) *Ledger {
	return &Ledger{
		assignments: assignments,
		shifts:      shifts,
		capacity:    seats,
		clock:       clk,
		logger:      logger,
	}
}

// Create reserves a seat and records a new assignment for the member.
// Voluntary and assigned types confirm immediately; automatic ones stay
// pending until confirmed by the member.
func (l *Ledger) Create(ctx context.Context, shiftID, slotID, memberID string, typ model.AssignmentType) (*model.Assignment, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("unknown assignment type %q", typ)
	}

	if _, err := l.assignments.GetActiveAssignment(ctx, shiftID, memberID); err == nil {
		return nil, ErrDuplicateActive
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing assignment: %w", err)
	}

	if err := l.capacity.Reserve(ctx, shiftID, slotID); err != nil {
		return nil, err
	}

	assignment, err := l.insertNew(ctx, shiftID, slotID, memberID, typ)
	if err != nil {
		// Compensate the reservation so the seat is not leaked
		if relErr := l.capacity.Release(ctx, shiftID, slotID); relErr != nil {
			l.logger.Error("Failed to release seat after insert failure",
				zap.String("shift_id", shiftID),
				zap.Error(relErr))
		}
		// A writer that slipped in between the check and the insert hits
		// the store's uniqueness guard, not the check above
		if errors.Is(err, db.ErrConflict) {
			return nil, ErrDuplicateActive
		}
		return nil, err
	}

	l.logger.Info("Assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("shift_id", shiftID),
		zap.String("member_id", memberID),
		zap.String("type", string(typ)))

	return assignment, nil
}

// AdoptSeat records a confirmed assignment for a seat that is already
// reserved (waiting-list activation, replacement acceptance). The caller
// owns releasing the seat if adoption fails.
func (l *Ledger) AdoptSeat(ctx context.Context, shiftID, slotID, memberID string, typ model.AssignmentType) (*model.Assignment, error) {
	if _, err := l.assignments.GetActiveAssignment(ctx, shiftID, memberID); err == nil {
		return nil, ErrDuplicateActive
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing assignment: %w", err)
	}

	assignment, err := l.insertNew(ctx, shiftID, slotID, memberID, typ)
	if errors.Is(err, db.ErrConflict) {
		return nil, ErrDuplicateActive
	}
	if err != nil {
		return nil, err
	}

	l.logger.Info("Reserved seat adopted",
		zap.String("assignment_id", assignment.ID),
		zap.String("shift_id", shiftID),
		zap.String("member_id", memberID),
		zap.String("type", string(typ)))

	return assignment, nil
}

func (l *Ledger) insertNew(ctx context.Context, shiftID, slotID, memberID string, typ model.AssignmentType) (*model.Assignment, error) {
	now := l.clock.Now()
	assignment := &model.Assignment{
		ID:        uuid.New().String(),
		ShiftID:   shiftID,
		SlotID:    slotID,
		MemberID:  memberID,
		Type:      typ,
		Status:    model.AssignmentPending,
		CreatedAt: now,
	}

	// Voluntary and directed assignments need no separate confirmation
	// step; neither do seats adopted from the waiting list.
	if typ != model.AssignmentAutomatic {
		assignment.Status = model.AssignmentConfirmed
	}

	if err := l.assignments.InsertAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return assignment, nil
}

// Confirm moves a pending assignment to confirmed.
func (l *Ledger) Confirm(ctx context.Context, assignmentID string) error {
	assignment, err := l.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !assignment.Status.CanTransitionTo(model.AssignmentConfirmed) {
		return fmt.Errorf("confirm from %s: %w", assignment.Status, ErrInvalidTransition)
	}
	assignment.Status = model.AssignmentConfirmed
	if err := l.assignments.UpdateAssignment(ctx, &assignment); err != nil {
		return fmt.Errorf("failed to confirm assignment: %w", err)
	}
	return nil
}

// CancelResult reports the policy outcome of a cancellation.
type CancelResult struct {
	Assignment *model.Assignment
	Band       model.CancellationBand

	// NeedsReplacement is set when the band forces replacement-seeking and
	// the shift would fall below its minimum. The seat is then kept
	// reserved; the caller must open a replacement workflow or call
	// ReleaseSeat.
	NeedsReplacement bool
}

// Cancel records a cancellation. The band classifies it by lead time;
// cancellation itself is always permitted. The seat is released back to the
// pool unless minimum coverage is threatened, in which case it stays held
// for a replacement. A second cancel of the same assignment returns
// db.ErrNotFound and releases nothing.
func (l *Ledger) Cancel(ctx context.Context, assignmentID, reason string) (*CancelResult, error) {
	assignment, err := l.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.Status.Active() {
		// Terminal already: idempotent no-op surfaced as not found
		return nil, db.ErrNotFound
	}

	shift, err := l.shifts.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shift for cancellation: %w", err)
	}

	now := l.clock.Now()
	band := policy.ClassifyCancellation(shift.StartTime.Sub(now))

	assignment.Status = model.AssignmentCancelled
	assignment.CancellationBand = band
	assignment.CancellationReason = reason
	assignment.CancelledAt = &now

	if err := l.assignments.UpdateAssignment(ctx, &assignment); err != nil {
		return nil, fmt.Errorf("failed to record cancellation: %w", err)
	}

	needsReplacement := policy.ForcesReplacement(band) &&
		shift.CurrentParticipants-1 < shift.MinParticipants

	if needsReplacement {
		l.logger.Info("Cancellation threatens minimum coverage, seat held for replacement",
			zap.String("assignment_id", assignmentID),
			zap.String("shift_id", shift.ID),
			zap.String("band", string(band)),
			zap.Int("occupancy", shift.CurrentParticipants),
			zap.Int("min", shift.MinParticipants))
	} else {
		if err := l.capacity.Release(ctx, assignment.ShiftID, assignment.SlotID); err != nil {
			return nil, fmt.Errorf("failed to release cancelled seat: %w", err)
		}
		l.logger.Info("Assignment cancelled, seat returned to pool",
			zap.String("assignment_id", assignmentID),
			zap.String("shift_id", shift.ID),
			zap.String("band", string(band)))
	}

	return &CancelResult{
		Assignment:       &assignment,
		Band:             band,
		NeedsReplacement: needsReplacement,
	}, nil
}

// ReleaseSeat returns a held seat to the pool. Used when a cancellation
// needed a replacement but none could be sought.
func (l *Ledger) ReleaseSeat(ctx context.Context, shiftID, slotID string) error {
	return l.capacity.Release(ctx, shiftID, slotID)
}

// CheckIn stamps the member's arrival on a confirmed assignment.
func (l *Ledger) CheckIn(ctx context.Context, assignmentID string) error {
	assignment, err := l.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if assignment.Status != model.AssignmentConfirmed {
		return fmt.Errorf("check-in from %s: %w", assignment.Status, ErrInvalidTransition)
	}
	now := l.clock.Now()
	assignment.CheckInAt = &now
	if err := l.assignments.UpdateAssignment(ctx, &assignment); err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}
	return nil
}

// CompleteOptions carries optional feedback captured at completion.
type CompleteOptions struct {
	Rating   int
	Feedback string
}

// CompleteResult reports the recorded completion.
type CompleteResult struct {
	Assignment *model.Assignment

	// ActualDuration is non-zero when both check-in and check-out stamps
	// are present.
	ActualDuration time.Duration
}

// Complete closes out a confirmed assignment. The check-out stamp is set to
// now when absent; actual duration is derived from the check-in/out pair
// when both exist.
func (l *Ledger) Complete(ctx context.Context, assignmentID string, opts CompleteOptions) (*CompleteResult, error) {
	assignment, err := l.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.Status.CanTransitionTo(model.AssignmentCompleted) {
		return nil, fmt.Errorf("complete from %s: %w", assignment.Status, ErrInvalidTransition)
	}

	now := l.clock.Now()
	if assignment.CheckOutAt == nil {
		assignment.CheckOutAt = &now
	}
	assignment.Status = model.AssignmentCompleted
	assignment.CompletedAt = &now
	assignment.Rating = opts.Rating
	assignment.Feedback = opts.Feedback

	if err := l.assignments.UpdateAssignment(ctx, &assignment); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	result := &CompleteResult{Assignment: &assignment}
	if assignment.CheckInAt != nil && assignment.CheckOutAt != nil {
		result.ActualDuration = assignment.CheckOutAt.Sub(*assignment.CheckInAt)
	}

	l.logger.Info("Assignment completed",
		zap.String("assignment_id", assignmentID),
		zap.Duration("actual_duration", result.ActualDuration))

	return result, nil
}
