// Package activation promotes waiting-list entries into assignments as
// shift dates approach. A cycle scans shifts starting within the activation
// lead, offers seats to the top-priority queued members, and cascades to
// the next candidate on decline or timeout. Cycles are externally
// triggered; the package never self-schedules.
package activation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/core/waitlist"
	"github.com/acrivain/guardpost/pkg/db"
	"github.com/acrivain/guardpost/pkg/notify"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

// ErrDeadlineExpired is returned when an activation response arrives after
// the entry's deadline. Non-fatal: the entry expires and the queue
// cascades.
var ErrDeadlineExpired = errors.New("activation response deadline has passed")

// ErrNoOutstandingOffer is returned when a response targets an entry that
// has no open activation offer.
var ErrNoOutstandingOffer = errors.New("entry has no outstanding activation offer")

// ResponseWindow is how long an activated member has to answer the offer.
const ResponseWindow = 4 * time.Hour

// Scheduler runs the J-3 activation process.
type Scheduler struct {
	shifts   db.ShiftStore
	entries  db.WaitingListStore
	queue    *waitlist.Queue
	capacity *capacity.Store
	ledger   *ledger.Ledger
	notifier notify.Gateway
	clock    clock.Clock
	logger   *zap.Logger
}

// New creates an activation scheduler.
func New(
	shifts db.ShiftStore,
	entries db.WaitingListStore,
	queue *waitlist.Queue,
	seats *capacity.Store,
	led *ledger.Ledger,
	notifier notify.Gateway,
	clk clock.Clock,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		shifts:   shifts,
		entries:  entries,
		queue:    queue,
		capacity: seats,
		ledger:   led,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// CycleResult summarizes one activation cycle.
type CycleResult struct {
	ShiftsScanned    int
	EntriesActivated int
	EntriesExpired   int
}

// RunCycle sweeps overdue response deadlines, then scans every shift dated
// within the activation lead and offers open seats to queued members in
// priority order. Shifts are processed in date order; concurrent
// cancellations arriving mid-cycle are tolerated because every offer
// re-validates capacity through the atomic reserve.
func (s *Scheduler) RunCycle(ctx context.Context, asOf time.Time) (*CycleResult, error) {
	result := &CycleResult{}

	expired, err := s.SweepDeadlines(ctx, asOf)
	if err != nil {
		return nil, err
	}
	result.EntriesExpired = expired

	horizon := asOf.AddDate(0, 0, waitlist.ActivationLeadDays)
	shifts, err := s.shifts.ListShiftsBetween(ctx, asOf.Truncate(24*time.Hour), horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts in activation window: %w", err)
	}

	s.logger.Info("Activation cycle started",
		zap.Time("as_of", asOf),
		zap.Int("shifts_in_window", len(shifts)))

	for _, shift := range shifts {
		if shift.Status == model.ShiftCancelled || shift.Status == model.ShiftClosed || shift.Status == model.ShiftFull {
			continue
		}
		result.ShiftsScanned++

		activated, err := s.fillShift(ctx, shift.ID, asOf)
		if err != nil {
			return nil, err
		}
		result.EntriesActivated += activated
	}

	s.logger.Info("Activation cycle finished",
		zap.Int("shifts_scanned", result.ShiftsScanned),
		zap.Int("entries_activated", result.EntriesActivated),
		zap.Int("entries_expired", result.EntriesExpired))

	return result, nil
}

// Cascade retries the queue for one shift after a decline or expiry freed
// capacity.
func (s *Scheduler) Cascade(ctx context.Context, shiftID string, asOf time.Time) (int, error) {
	return s.fillShift(ctx, shiftID, asOf)
}

// fillShift activates top-priority entries until capacity runs out or the
// queue for the shift is exhausted. Priorities are re-evaluated first so
// activation order reflects current history, not enqueue-time scores.
func (s *Scheduler) fillShift(ctx context.Context, shiftID string, asOf time.Time) (int, error) {
	if err := s.queue.RescorePending(ctx, shiftID); err != nil {
		return 0, err
	}

	activated := 0
	for {
		entry, err := s.queue.DequeueTopFor(ctx, shiftID)
		if errors.Is(err, db.ErrNotFound) {
			break // queue exhausted
		}
		if err != nil {
			return activated, err
		}

		err = s.capacity.Reserve(ctx, entry.ShiftID, entry.SlotID)
		if errors.Is(err, capacity.ErrShiftFull) || errors.Is(err, capacity.ErrShiftNotAllocatable) {
			break // capacity exhausted
		}
		if err != nil {
			return activated, fmt.Errorf("failed to reserve seat for activation: %w", err)
		}

		deadline := asOf.Add(ResponseWindow)
		entry.Status = model.WaitingActivated
		entry.ResponseDeadline = &deadline
		entry.Response = model.ResponseNone
		if err := s.entries.UpdateEntry(ctx, entry); err != nil {
			// Seat must not leak if the activation cannot be recorded
			if relErr := s.capacity.Release(ctx, entry.ShiftID, entry.SlotID); relErr != nil {
				s.logger.Error("Failed to release seat after activation failure",
					zap.String("entry_id", entry.ID),
					zap.Error(relErr))
			}
			return activated, fmt.Errorf("failed to activate entry %s: %w", entry.ID, err)
		}

		s.notifier.Notify(ctx, entry.MemberID, notify.TemplateActivationOffer, map[string]string{
			"entry_id":          entry.ID,
			"shift_id":          entry.ShiftID,
			"shift_date":        entry.TargetDate.Format("2006-01-02"),
			"response_deadline": deadline.Format(time.RFC3339),
			"priority":          strconv.Itoa(entry.Priority),
		})

		s.logger.Info("Waiting-list entry activated",
			zap.String("entry_id", entry.ID),
			zap.String("shift_id", entry.ShiftID),
			zap.String("member_id", entry.MemberID),
			zap.Time("response_deadline", deadline))

		activated++
	}
	return activated, nil
}

// Respond settles an activation offer. Accepting before the deadline
// converts the entry into a waiting-list assignment on the held seat;
// declining, or answering late, expires the entry, releases the seat and
// cascades to the next candidate.
func (s *Scheduler) Respond(ctx context.Context, entryID string, accept bool) (model.WaitingStatus, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return "", err
	}

	switch entry.Status {
	case model.WaitingActivated:
		// fall through to handling below
	case model.WaitingExpired:
		return model.WaitingExpired, nil
	default:
		return entry.Status, ErrNoOutstandingOffer
	}

	now := s.clock.Now()
	if entry.ResponseDeadline != nil && now.After(*entry.ResponseDeadline) {
		if err := s.expireEntry(ctx, &entry, model.ResponseNoResponse, now); err != nil {
			return "", err
		}
		return model.WaitingExpired, ErrDeadlineExpired
	}

	if !accept {
		if err := s.expireEntry(ctx, &entry, model.ResponseDeclined, now); err != nil {
			return "", err
		}
		return model.WaitingExpired, nil
	}

	_, err = s.ledger.AdoptSeat(ctx, entry.ShiftID, entry.SlotID, entry.MemberID, model.AssignmentWaitingList)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateActive) {
			// Member got a seat some other way since activation; the
			// offer is moot and the held seat goes back to the pool
			if expErr := s.expireEntry(ctx, &entry, model.ResponseNoResponse, now); expErr != nil {
				return "", expErr
			}
			return model.WaitingExpired, err
		}
		return "", fmt.Errorf("failed to assign from waiting list: %w", err)
	}

	entry.Status = model.WaitingAssigned
	entry.Response = model.ResponseAccepted
	entry.RespondedAt = &now
	if err := s.entries.UpdateEntry(ctx, &entry); err != nil {
		return "", fmt.Errorf("failed to record acceptance: %w", err)
	}

	s.notifier.Notify(ctx, entry.MemberID, notify.TemplateAssignmentConfirmed, map[string]string{
		"shift_id":   entry.ShiftID,
		"shift_date": entry.TargetDate.Format("2006-01-02"),
	})

	return model.WaitingAssigned, nil
}

// SweepDeadlines expires every activated entry whose response deadline has
// passed, releasing held seats and cascading each affected shift. Returns
// the number of entries expired.
func (s *Scheduler) SweepDeadlines(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := s.entries.OverdueActivatedEntries(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue activations: %w", err)
	}

	for i := range overdue {
		if err := s.expireEntry(ctx, &overdue[i], model.ResponseNoResponse, asOf); err != nil {
			return i, err
		}
	}
	return len(overdue), nil
}

// expireEntry settles an activated entry without an acceptance: the seat
// held since activation is released and the shift's queue cascades.
func (s *Scheduler) expireEntry(ctx context.Context, entry *model.WaitingListEntry, response model.WaitingResponse, asOf time.Time) error {
	entry.Status = model.WaitingExpired
	entry.Response = response
	entry.RespondedAt = &asOf
	if err := s.entries.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to expire entry %s: %w", entry.ID, err)
	}

	if err := s.capacity.Release(ctx, entry.ShiftID, entry.SlotID); err != nil {
		return fmt.Errorf("failed to release activation seat: %w", err)
	}

	s.notifier.Notify(ctx, entry.MemberID, notify.TemplateActivationExpired, map[string]string{
		"entry_id": entry.ID,
		"shift_id": entry.ShiftID,
		"response": string(response),
	})

	s.logger.Info("Activation offer expired",
		zap.String("entry_id", entry.ID),
		zap.String("shift_id", entry.ShiftID),
		zap.String("response", string(response)))

	// Seat freed; offer it to the next candidate
	if _, err := s.Cascade(ctx, entry.ShiftID, asOf); err != nil {
		return err
	}
	return nil
}
