// Package memstore provides an in-memory implementation of the store
// interfaces. A single mutex guards all maps, which makes the versioned
// occupancy compare-and-swap trivially atomic. It backs unit tests and
// small single-process deployments.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

// Store holds all records in memory.
type Store struct {
	mu           sync.Mutex
	shifts       map[string]model.Shift
	slots        map[string]model.Slot
	assignments  map[string]model.Assignment
	entries      map[string]model.WaitingListEntry
	replacements map[string]model.Replacement
	members      map[string]model.Member
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		shifts:       make(map[string]model.Shift),
		slots:        make(map[string]model.Slot),
		assignments:  make(map[string]model.Assignment),
		entries:      make(map[string]model.WaitingListEntry),
		replacements: make(map[string]model.Replacement),
		members:      make(map[string]model.Member),
	}
}

// --- ShiftStore ---

func (s *Store) GetShift(ctx context.Context, id string) (model.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok {
		return model.Shift{}, db.ErrNotFound
	}
	return shift, nil
}

func (s *Store) InsertShift(ctx context.Context, shift *model.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[shift.ID] = *shift
	return nil
}

func (s *Store) ListShiftsBetween(ctx context.Context, from, to time.Time) ([]model.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Shift
	for _, shift := range s.shifts {
		if shift.DeletedAt != nil {
			continue
		}
		if shift.Date.Before(from) || shift.Date.After(to) {
			continue
		}
		out = append(out, shift)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CompareAndSwapOccupancy(ctx context.Context, id string, version int64, occupancy int, status model.ShiftStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok {
		return false, db.ErrNotFound
	}
	if shift.Version != version {
		return false, nil
	}
	shift.CurrentParticipants = occupancy
	shift.Status = status
	shift.Version++
	s.shifts[id] = shift
	return true, nil
}

// --- SlotStore ---

func (s *Store) GetSlot(ctx context.Context, id string) (model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return model.Slot{}, db.ErrNotFound
	}
	return slot, nil
}

func (s *Store) InsertSlot(ctx context.Context, slot *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ID] = *slot
	return nil
}

func (s *Store) ListSlotsForShift(ctx context.Context, shiftID string) ([]model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Slot
	for _, slot := range s.slots {
		if slot.ShiftID == shiftID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CompareAndSwapSlotOccupancy(ctx context.Context, id string, version int64, occupancy int, status model.ShiftStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return false, db.ErrNotFound
	}
	if slot.Version != version {
		return false, nil
	}
	slot.CurrentParticipants = occupancy
	slot.Status = status
	slot.Version++
	s.slots[id] = slot
	return true, nil
}

// --- AssignmentStore ---

func (s *Store) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, db.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetActiveAssignment(ctx context.Context, shiftID, memberID string) (model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.ShiftID == shiftID && a.MemberID == memberID && a.Status.Active() {
			return a, nil
		}
	}
	return model.Assignment{}, db.ErrNotFound
}

func (s *Store) InsertAssignment(ctx context.Context, assignment *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same guard the partial unique index gives the SQL backend: one live
	// assignment per (shift, member), checked and written under the lock
	if assignment.Status.Active() {
		for _, a := range s.assignments {
			if a.ShiftID == assignment.ShiftID && a.MemberID == assignment.MemberID && a.Status.Active() {
				return fmt.Errorf("failed to insert assignment for member %s: %w", assignment.MemberID, db.ErrConflict)
			}
		}
	}
	s.assignments[assignment.ID] = *assignment
	return nil
}

func (s *Store) UpdateAssignment(ctx context.Context, assignment *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assignment.ID]; !ok {
		return db.ErrNotFound
	}
	s.assignments[assignment.ID] = *assignment
	return nil
}

func (s *Store) CountActiveAssignments(ctx context.Context, shiftID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.assignments {
		if a.ShiftID == shiftID && a.Status.Active() {
			count++
		}
	}
	return count, nil
}

// --- WaitingListStore ---

func (s *Store) GetEntry(ctx context.Context, id string) (model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return model.WaitingListEntry{}, db.ErrNotFound
	}
	return e, nil
}

func (s *Store) GetActiveEntry(ctx context.Context, shiftID, slotID, memberID string) (model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ShiftID == shiftID && e.SlotID == slotID && e.MemberID == memberID && e.Status.Active() {
			return e, nil
		}
	}
	return model.WaitingListEntry{}, db.ErrNotFound
}

func (s *Store) InsertEntry(ctx context.Context, entry *model.WaitingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Status.Active() {
		for _, e := range s.entries {
			if e.ShiftID == entry.ShiftID && e.SlotID == entry.SlotID && e.MemberID == entry.MemberID && e.Status.Active() {
				return fmt.Errorf("failed to insert waiting-list entry for member %s: %w", entry.MemberID, db.ErrConflict)
			}
		}
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *model.WaitingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return db.ErrNotFound
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (s *Store) PendingEntries(ctx context.Context, shiftID string) ([]model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitingListEntry
	for _, e := range s.entries {
		if e.ShiftID == shiftID && e.Status == model.WaitingPending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}

func (s *Store) OverdueActivatedEntries(ctx context.Context, asOf time.Time) ([]model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitingListEntry
	for _, e := range s.entries {
		if e.Status != model.WaitingActivated || e.ResponseDeadline == nil {
			continue
		}
		if !e.ResponseDeadline.After(asOf) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CountPendingEntries(ctx context.Context, shiftID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.entries {
		if e.ShiftID == shiftID && e.Status == model.WaitingPending {
			count++
		}
	}
	return count, nil
}

// --- ReplacementStore ---

func (s *Store) GetReplacement(ctx context.Context, id string) (model.Replacement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replacements[id]
	if !ok {
		return model.Replacement{}, db.ErrNotFound
	}
	return r, nil
}

func (s *Store) InsertReplacement(ctx context.Context, r *model.Replacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replacements[r.ID] = *r
	return nil
}

func (s *Store) UpdateReplacement(ctx context.Context, r *model.Replacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.replacements[r.ID]; !ok {
		return db.ErrNotFound
	}
	s.replacements[r.ID] = *r
	return nil
}

func (s *Store) OverduePendingReplacements(ctx context.Context, asOf time.Time) ([]model.Replacement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Replacement
	for _, r := range s.replacements {
		if r.Status == model.ReplacementPending && !r.Deadline.After(asOf) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- MemberStore ---

func (s *Store) GetMember(ctx context.Context, id string) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, db.ErrNotFound
	}
	return m, nil
}

// InsertMember seeds the member directory. Member CRUD proper lives in the
// surrounding system; tests and the CLI use this to load fixtures.
func (s *Store) InsertMember(ctx context.Context, m *model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = *m
	return nil
}

// MemberHistory derives the scoring inputs from the member record and the
// assignment and waiting-list archives.
func (s *Store) MemberHistory(ctx context.Context, memberID string, asOf time.Time) (model.MemberHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var h model.MemberHistory
	if m, ok := s.members[memberID]; ok && !m.JoinedAt.IsZero() {
		h.YearsActive = int(asOf.Sub(m.JoinedAt).Hours() / (24 * 365))
		if h.YearsActive < 0 {
			h.YearsActive = 0
		}
	}

	completedSince := asOf.AddDate(0, 0, -90)
	for _, a := range s.assignments {
		if a.MemberID != memberID || a.Status != model.AssignmentCompleted {
			continue
		}
		if a.CompletedAt != nil && a.CompletedAt.After(completedSince) {
			h.CompletedLast90Days++
		}
	}

	declinedSince := asOf.AddDate(0, 0, -30)
	for _, e := range s.entries {
		if e.MemberID != memberID || e.Response != model.ResponseDeclined {
			continue
		}
		if e.RespondedAt != nil && e.RespondedAt.After(declinedSince) {
			h.DeclinedLast30Days++
		}
	}

	return h, nil
}
