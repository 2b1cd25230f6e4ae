package db

import (
	"context"
	"errors"
	"time"

	"github.com/acrivain/guardpost/pkg/core/model"
)

// ErrNotFound is returned by store lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned by inserts that would create a second live
// record for keys the store keeps unique, such as two active assignments
// for one (shift, member) pair.
var ErrConflict = errors.New("conflicting active record")

// ShiftStore defines the interface for shift database operations.
// CompareAndSwapOccupancy is the single mutation point for occupancy: it
// writes the new occupancy and status only if the stored version still
// matches, so concurrent writers serialize per shift.
type ShiftStore interface {
	GetShift(ctx context.Context, id string) (model.Shift, error)
	InsertShift(ctx context.Context, shift *model.Shift) error
	ListShiftsBetween(ctx context.Context, from, to time.Time) ([]model.Shift, error)
	CompareAndSwapOccupancy(ctx context.Context, id string, version int64, occupancy int, status model.ShiftStatus) (bool, error)
}

// SlotStore defines the interface for slot database operations.
type SlotStore interface {
	GetSlot(ctx context.Context, id string) (model.Slot, error)
	InsertSlot(ctx context.Context, slot *model.Slot) error
	ListSlotsForShift(ctx context.Context, shiftID string) ([]model.Slot, error)
	CompareAndSwapSlotOccupancy(ctx context.Context, id string, version int64, occupancy int, status model.ShiftStatus) (bool, error)
}

// AssignmentStore defines the interface for assignment database operations.
type AssignmentStore interface {
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	// GetActiveAssignment returns the single pending or confirmed assignment
	// the member holds anywhere on the shift, slot-level or shift-level, or
	// ErrNotFound. A member occupies at most one seat per shift.
	GetActiveAssignment(ctx context.Context, shiftID, memberID string) (model.Assignment, error)
	// InsertAssignment rejects with ErrConflict when the member already
	// holds an active assignment on the shift.
	InsertAssignment(ctx context.Context, assignment *model.Assignment) error
	UpdateAssignment(ctx context.Context, assignment *model.Assignment) error
	CountActiveAssignments(ctx context.Context, shiftID string) (int, error)
}

// WaitingListStore defines the interface for waiting-list database operations.
type WaitingListStore interface {
	GetEntry(ctx context.Context, id string) (model.WaitingListEntry, error)
	// GetActiveEntry returns the pending or activated entry for the
	// (shift/slot, member) pair, or ErrNotFound.
	GetActiveEntry(ctx context.Context, shiftID, slotID, memberID string) (model.WaitingListEntry, error)
	// InsertEntry rejects with ErrConflict when the member already has an
	// active entry for the same shift and slot.
	InsertEntry(ctx context.Context, entry *model.WaitingListEntry) error
	UpdateEntry(ctx context.Context, entry *model.WaitingListEntry) error
	PendingEntries(ctx context.Context, shiftID string) ([]model.WaitingListEntry, error)
	// OverdueActivatedEntries returns activated entries whose response
	// deadline passed at or before asOf.
	OverdueActivatedEntries(ctx context.Context, asOf time.Time) ([]model.WaitingListEntry, error)
	CountPendingEntries(ctx context.Context, shiftID string) (int, error)
}

// ReplacementStore defines the interface for replacement-workflow operations.
type ReplacementStore interface {
	GetReplacement(ctx context.Context, id string) (model.Replacement, error)
	InsertReplacement(ctx context.Context, r *model.Replacement) error
	UpdateReplacement(ctx context.Context, r *model.Replacement) error
	// OverduePendingReplacements returns pending workflows whose deadline
	// passed at or before asOf.
	OverduePendingReplacements(ctx context.Context, asOf time.Time) ([]model.Replacement, error)
}

// MemberStore defines the read-only slice of the member directory the
// allocator consumes. Member CRUD lives in the surrounding system.
type MemberStore interface {
	GetMember(ctx context.Context, id string) (model.Member, error)
	// MemberHistory aggregates the scoring inputs as of the given instant.
	MemberHistory(ctx context.Context, memberID string, asOf time.Time) (model.MemberHistory, error)
}
