// Package waitlist manages the per-shift priority queue of members waiting
// for a seat on a full shift. Entries are ordered by (priority,
// requested_at); lower priority values are served first.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/core/policy"
	"github.com/acrivain/guardpost/pkg/db"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

// ErrAlreadyQueued is returned when the member already has an active entry
// for the target shift.
var ErrAlreadyQueued = errors.New("member is already queued for this shift")

// ErrOfferOutstanding is returned when withdrawing an entry whose
// activation offer is still open. Accepting or declining the offer is the
// only way out; declining releases the held seat.
var ErrOfferOutstanding = errors.New("entry has an outstanding activation offer")

// ActivationLeadDays is how many days before the shift date queued entries
// become eligible for activation (J-3).
const ActivationLeadDays = 3

// Queue manages waiting-list entries for shifts.
type Queue struct {
	entries db.WaitingListStore
	shifts  db.ShiftStore
	members db.MemberStore
	clock   clock.Clock
	logger  *zap.Logger
}

// New creates a waiting-list queue.
func New(entries db.WaitingListStore, shifts db.ShiftStore, members db.MemberStore, clk clock.Clock, logger *zap.Logger) *Queue {
	return &Queue{
		entries: entries,
		shifts:  shifts,
		members: members,
		clock:   clk,
		logger:  logger,
	}
}

// Enqueue adds the member to the queue for a full shift. The priority
// computed here is provisional; it is re-evaluated at activation time.
func (q *Queue) Enqueue(ctx context.Context, memberID, shiftID, slotID string) (*model.WaitingListEntry, error) {
	if _, err := q.entries.GetActiveEntry(ctx, shiftID, slotID, memberID); err == nil {
		return nil, ErrAlreadyQueued
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing entry: %w", err)
	}

	shift, err := q.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shift %s: %w", shiftID, err)
	}

	now := q.clock.Now()
	priority, err := q.scoreMember(ctx, memberID, now)
	if err != nil {
		return nil, err
	}

	entry := &model.WaitingListEntry{
		ID:             uuid.New().String(),
		MemberID:       memberID,
		ShiftID:        shiftID,
		SlotID:         slotID,
		Scope:          shift.Scope,
		TargetDate:     shift.Date,
		Priority:       priority,
		Status:         model.WaitingPending,
		ActivationDate: shift.Date.AddDate(0, 0, -ActivationLeadDays),
		RequestedAt:    now,
	}

	if err := q.entries.InsertEntry(ctx, entry); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, ErrAlreadyQueued
		}
		return nil, fmt.Errorf("failed to insert waiting-list entry: %w", err)
	}

	q.logger.Info("Member queued",
		zap.String("entry_id", entry.ID),
		zap.String("shift_id", shiftID),
		zap.String("member_id", memberID),
		zap.Int("priority", priority))

	return entry, nil
}

// DequeueTopFor returns the pending entry with the lowest priority value
// for the shift, ties broken by earliest request. db.ErrNotFound when the
// queue is empty. The entry is not mutated; activation does that.
func (q *Queue) DequeueTopFor(ctx context.Context, shiftID string) (*model.WaitingListEntry, error) {
	pending, err := q.entries.PendingEntries(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil, db.ErrNotFound
	}
	// PendingEntries returns (priority, requested_at) order
	top := pending[0]
	return &top, nil
}

// RescorePending recomputes the priority of every pending entry for the
// shift from the member's current history. Called at the start of each
// activation pass so stale enqueue-time scores do not decide activation
// order.
func (q *Queue) RescorePending(ctx context.Context, shiftID string) error {
	pending, err := q.entries.PendingEntries(ctx, shiftID)
	if err != nil {
		return fmt.Errorf("failed to list pending entries: %w", err)
	}

	now := q.clock.Now()
	for _, entry := range pending {
		priority, err := q.scoreMember(ctx, entry.MemberID, now)
		if err != nil {
			return err
		}
		if priority == entry.Priority {
			continue
		}
		entry.Priority = priority
		if err := q.entries.UpdateEntry(ctx, &entry); err != nil {
			return fmt.Errorf("failed to rescore entry %s: %w", entry.ID, err)
		}
		q.logger.Debug("Entry rescored",
			zap.String("entry_id", entry.ID),
			zap.Int("priority", priority))
	}
	return nil
}

// Withdraw cancels a pending entry at the member's request. An activated
// entry is tied to a reserved seat and must be resolved through the offer
// response path, which returns the seat to the pool and cascades.
func (q *Queue) Withdraw(ctx context.Context, entryID string) error {
	entry, err := q.entries.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status == model.WaitingActivated {
		return ErrOfferOutstanding
	}
	if entry.Status != model.WaitingPending {
		return db.ErrNotFound
	}
	entry.Status = model.WaitingCancelled
	if err := q.entries.UpdateEntry(ctx, &entry); err != nil {
		return fmt.Errorf("failed to withdraw entry: %w", err)
	}
	q.logger.Info("Waiting-list entry withdrawn", zap.String("entry_id", entryID))
	return nil
}

// Depth reports how many members are still pending for the shift.
func (q *Queue) Depth(ctx context.Context, shiftID string) (int, error) {
	return q.entries.CountPendingEntries(ctx, shiftID)
}

func (q *Queue) scoreMember(ctx context.Context, memberID string, asOf time.Time) (int, error) {
	history, err := q.members.MemberHistory(ctx, memberID, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to load history for member %s: %w", memberID, err)
	}
	return policy.Score(history), nil
}
