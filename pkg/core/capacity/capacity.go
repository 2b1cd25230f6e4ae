// Package capacity implements the authoritative occupancy accounting for
// shifts and slots. Reserve and Release are the only mutation points for
// occupancy; both run as an optimistic compare-and-swap loop against the
// store's versioned occupancy primitive, so concurrent reserves on a shift
// with one seat left admit exactly one caller.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

var (
	// ErrShiftFull is returned when a reservation is rejected because the
	// shift (or slot) is at capacity. Recoverable: the caller should enqueue.
	ErrShiftFull = errors.New("shift is at capacity")

	// ErrShiftNotAllocatable is returned when the shift is closed or
	// cancelled and can no longer admit participants.
	ErrShiftNotAllocatable = errors.New("shift is not accepting participants")

	// ErrInvariantViolation signals corrupted occupancy accounting. The
	// mutation is aborted, never clamped.
	ErrInvariantViolation = errors.New("occupancy invariant violation")

	// ErrContention is returned when the CAS loop exhausts its retries.
	ErrContention = errors.New("too much contention on shift occupancy")
)

// casRetries bounds the optimistic retry loop. Contention on a single shift
// is short-lived; hitting the bound means something is livelocked.
const casRetries = 16

// Store serializes occupancy changes for shifts and slots.
type Store struct {
	shifts db.ShiftStore
	slots  db.SlotStore
	logger *zap.Logger
}

// NewStore creates a capacity store over the given shift and slot stores.
func NewStore(shifts db.ShiftStore, slots db.SlotStore, logger *zap.Logger) *Store {
	return &Store{shifts: shifts, slots: slots, logger: logger}
}

// NextStatus recomputes the derived status after an occupancy change.
// Closed and cancelled shifts keep their status; otherwise the shift is
// full exactly when occupancy reaches the maximum.
func NextStatus(current model.ShiftStatus, occupancy, max int) model.ShiftStatus {
	if current == model.ShiftClosed || current == model.ShiftCancelled {
		return current
	}
	if occupancy >= max {
		return model.ShiftFull
	}
	return model.ShiftOpen
}

// Reserve atomically admits one participant to the shift, or to one of its
// slots when slotID is non-empty. It returns ErrShiftFull when the target is
// at capacity and ErrShiftNotAllocatable when it is closed or cancelled.
func (s *Store) Reserve(ctx context.Context, shiftID, slotID string) error {
	if slotID != "" {
		return s.reserveSlot(ctx, slotID)
	}
	return s.reserveShift(ctx, shiftID)
}

// Release atomically returns one seat to the pool. Releasing below zero is a
// no-op: the violation is logged as a defect rather than driving occupancy
// negative.
func (s *Store) Release(ctx context.Context, shiftID, slotID string) error {
	if slotID != "" {
		return s.releaseSlot(ctx, slotID)
	}
	return s.releaseShift(ctx, shiftID)
}

func (s *Store) reserveShift(ctx context.Context, shiftID string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		shift, err := s.shifts.GetShift(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to load shift %s: %w", shiftID, err)
		}

		if !shift.Status.Allocatable() && shift.Status != model.ShiftFull {
			return ErrShiftNotAllocatable
		}
		if shift.CurrentParticipants >= shift.MaxParticipants {
			return ErrShiftFull
		}

		next := shift.CurrentParticipants + 1
		status := NextStatus(shift.Status, next, shift.MaxParticipants)
		ok, err := s.shifts.CompareAndSwapOccupancy(ctx, shiftID, shift.Version, next, status)
		if err != nil {
			return fmt.Errorf("failed to reserve seat on shift %s: %w", shiftID, err)
		}
		if ok {
			s.logger.Debug("Seat reserved",
				zap.String("shift_id", shiftID),
				zap.Int("occupancy", next),
				zap.Int("max", shift.MaxParticipants))
			return nil
		}
		// Version moved under us; re-read and retry
	}
	return fmt.Errorf("reserve on shift %s: %w", shiftID, ErrContention)
}

func (s *Store) releaseShift(ctx context.Context, shiftID string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		shift, err := s.shifts.GetShift(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to load shift %s: %w", shiftID, err)
		}

		if shift.CurrentParticipants <= 0 {
			s.logger.Error("Release would drive occupancy negative",
				zap.String("shift_id", shiftID),
				zap.Int("occupancy", shift.CurrentParticipants))
			return fmt.Errorf("release on shift %s: %w", shiftID, ErrInvariantViolation)
		}

		next := shift.CurrentParticipants - 1
		status := NextStatus(shift.Status, next, shift.MaxParticipants)
		ok, err := s.shifts.CompareAndSwapOccupancy(ctx, shiftID, shift.Version, next, status)
		if err != nil {
			return fmt.Errorf("failed to release seat on shift %s: %w", shiftID, err)
		}
		if ok {
			s.logger.Debug("Seat released",
				zap.String("shift_id", shiftID),
				zap.Int("occupancy", next),
				zap.Int("max", shift.MaxParticipants))
			return nil
		}
	}
	return fmt.Errorf("release on shift %s: %w", shiftID, ErrContention)
}

func (s *Store) reserveSlot(ctx context.Context, slotID string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		slot, err := s.slots.GetSlot(ctx, slotID)
		if err != nil {
			return fmt.Errorf("failed to load slot %s: %w", slotID, err)
		}

		if !slot.Status.Allocatable() && slot.Status != model.ShiftFull {
			return ErrShiftNotAllocatable
		}
		if slot.CurrentParticipants >= slot.MaxParticipants {
			return ErrShiftFull
		}

		next := slot.CurrentParticipants + 1
		status := NextStatus(slot.Status, next, slot.MaxParticipants)
		ok, err := s.slots.CompareAndSwapSlotOccupancy(ctx, slotID, slot.Version, next, status)
		if err != nil {
			return fmt.Errorf("failed to reserve seat on slot %s: %w", slotID, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("reserve on slot %s: %w", slotID, ErrContention)
}

func (s *Store) releaseSlot(ctx context.Context, slotID string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		slot, err := s.slots.GetSlot(ctx, slotID)
		if err != nil {
			return fmt.Errorf("failed to load slot %s: %w", slotID, err)
		}

		if slot.CurrentParticipants <= 0 {
			s.logger.Error("Release would drive slot occupancy negative",
				zap.String("slot_id", slotID),
				zap.Int("occupancy", slot.CurrentParticipants))
			return fmt.Errorf("release on slot %s: %w", slotID, ErrInvariantViolation)
		}

		next := slot.CurrentParticipants - 1
		status := NextStatus(slot.Status, next, slot.MaxParticipants)
		ok, err := s.slots.CompareAndSwapSlotOccupancy(ctx, slotID, slot.Version, next, status)
		if err != nil {
			return fmt.Errorf("failed to release seat on slot %s: %w", slotID, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("release on slot %s: %w", slotID, ErrContention)
}
