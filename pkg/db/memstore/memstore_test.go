package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

func seedAssignment(t *testing.T, s *Store, id, shiftID, slotID, memberID string, status model.AssignmentStatus) {
	t.Helper()
	require.NoError(t, s.InsertAssignment(context.Background(), &model.Assignment{
		ID:        id,
		ShiftID:   shiftID,
		SlotID:    slotID,
		MemberID:  memberID,
		Type:      model.AssignmentVoluntary,
		Status:    status,
		CreatedAt: time.Now(),
	}))
}

// The insert itself must reject a second live assignment for the same
// (shift, member), matching the SQL backend's partial unique index. A
// check before the insert is not enough once two writers interleave.
func TestInsertAssignmentRejectsActiveDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAssignment(t, s, "a-1", "shift-1", "", "member-1", model.AssignmentConfirmed)

	err := s.InsertAssignment(ctx, &model.Assignment{
		ID:       "a-2",
		ShiftID:  "shift-1",
		MemberID: "member-1",
		Status:   model.AssignmentPending,
	})
	assert.ErrorIs(t, err, db.ErrConflict)

	// Terminal records do not block a fresh one
	seedAssignment(t, s, "a-3", "shift-1", "", "member-2", model.AssignmentCancelled)
	err = s.InsertAssignment(ctx, &model.Assignment{
		ID:       "a-4",
		ShiftID:  "shift-1",
		MemberID: "member-2",
		Status:   model.AssignmentConfirmed,
	})
	assert.NoError(t, err)
}

// A slot seat and a shift seat are the same member occupying the same
// shift; neither the lookup nor the insert may treat them as distinct.
func TestActiveAssignmentUniquenessIsShiftWide(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAssignment(t, s, "a-1", "shift-1", "slot-1", "member-1", model.AssignmentConfirmed)

	found, err := s.GetActiveAssignment(ctx, "shift-1", "member-1")
	require.NoError(t, err)
	assert.Equal(t, "a-1", found.ID)

	err = s.InsertAssignment(ctx, &model.Assignment{
		ID:       "a-2",
		ShiftID:  "shift-1",
		SlotID:   "",
		MemberID: "member-1",
		Status:   model.AssignmentConfirmed,
	})
	assert.ErrorIs(t, err, db.ErrConflict)

	// A different shift is fine
	seedAssignment(t, s, "a-3", "shift-2", "", "member-1", model.AssignmentConfirmed)
}

func TestInsertEntryRejectsActiveDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()

	entry := model.WaitingListEntry{
		ID:          "e-1",
		MemberID:    "member-1",
		ShiftID:     "shift-1",
		Status:      model.WaitingPending,
		RequestedAt: time.Now(),
	}
	require.NoError(t, s.InsertEntry(ctx, &entry))

	dup := entry
	dup.ID = "e-2"
	assert.ErrorIs(t, s.InsertEntry(ctx, &dup), db.ErrConflict)

	// A settled entry frees the way for a new one
	entry.Status = model.WaitingCancelled
	require.NoError(t, s.UpdateEntry(ctx, &entry))
	fresh := dup
	fresh.ID = "e-3"
	assert.NoError(t, s.InsertEntry(ctx, &fresh))
}
