package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
	"github.com/acrivain/guardpost/pkg/db/memstore"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

type fixture struct {
	ledger *Ledger
	mem    *memstore.Store
	clock  *clock.Fake
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	seats := capacity.NewStore(mem, mem, zap.NewNop())
	return &fixture{
		ledger: New(mem, mem, seats, clk, zap.NewNop()),
		mem:    mem,
		clock:  clk,
		ctx:    context.Background(),
	}
}

// seedShift creates a shift starting the given duration after the fake
// clock's current time.
func (f *fixture) seedShift(t *testing.T, id string, startsIn time.Duration, min, max, current int) {
	t.Helper()
	start := f.clock.Now().Add(startsIn)
	err := f.mem.InsertShift(f.ctx, &model.Shift{
		ID:                  id,
		Scope:               "north",
		Date:                start.Truncate(24 * time.Hour),
		StartTime:           start,
		EndTime:             start.Add(12 * time.Hour),
		MinParticipants:     min,
		MaxParticipants:     max,
		CurrentParticipants: current,
		Status:              capacity.NextStatus(model.ShiftOpen, current, max),
		Type:                model.ShiftTypeNight,
		Tier:                model.TierRoutine,
	})
	require.NoError(t, err)
}

func TestCreateConfirmsVoluntary(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 48*time.Hour, 1, 3, 0)

	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentConfirmed, a.Status)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 1, shift.CurrentParticipants)
}

func TestCreateAutomaticStaysPending(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 48*time.Hour, 1, 3, 0)

	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentAutomatic)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentPending, a.Status)

	require.NoError(t, f.ledger.Confirm(f.ctx, a.ID))
	updated, err := f.mem.GetAssignment(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentConfirmed, updated.Status)
}

func TestCreateRejectsDuplicateActive(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 48*time.Hour, 1, 3, 0)

	_, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	_, err = f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	assert.ErrorIs(t, err, ErrDuplicateActive)

	// Capacity must not have been consumed twice
	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 1, shift.CurrentParticipants)
}

func TestCreateRejectsSecondSeatOnSameShift(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 48*time.Hour, 1, 4, 0)
	require.NoError(t, f.mem.InsertSlot(f.ctx, &model.Slot{
		ID:              "slot-1",
		ShiftID:         "shift-1",
		MinParticipants: 1,
		MaxParticipants: 2,
		Status:          model.ShiftOpen,
	}))

	_, err := f.ledger.Create(f.ctx, "shift-1", "slot-1", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	// A slot seat already puts the member on the shift
	_, err = f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	assert.ErrorIs(t, err, ErrDuplicateActive)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)
}

func TestCreateRejectsWhenFull(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 48*time.Hour, 1, 1, 1)

	_, err := f.ledger.Create(f.ctx, "shift-1", "", "member-2", model.AssignmentVoluntary)
	assert.ErrorIs(t, err, capacity.ErrShiftFull)
}

func TestActiveCountMatchesOccupancy(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 10*24*time.Hour, 1, 3, 0)

	for _, member := range []string{"m1", "m2", "m3"} {
		_, err := f.ledger.Create(f.ctx, "shift-1", "", member, model.AssignmentVoluntary)
		require.NoError(t, err)
	}

	count, err := f.mem.CountActiveAssignments(f.ctx, "shift-1")
	require.NoError(t, err)
	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, shift.CurrentParticipants, count)
}

func TestCancelNormalBandReleasesSeat(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 10*24*time.Hour, 1, 3, 0)
	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	result, err := f.ledger.Cancel(f.ctx, a.ID, "holiday")
	require.NoError(t, err)
	assert.Equal(t, model.BandNormal, result.Band)
	assert.False(t, result.NeedsReplacement)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)

	cancelled, err := f.mem.GetAssignment(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentCancelled, cancelled.Status)
	assert.Equal(t, "holiday", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestCancelLateBelowMinimumHoldsSeat(t *testing.T) {
	f := newFixture(t)
	// 30 hours out → late band
	f.seedShift(t, "shift-1", 30*time.Hour, 2, 3, 1)
	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	result, err := f.ledger.Cancel(f.ctx, a.ID, "sick")
	require.NoError(t, err)
	assert.Equal(t, model.BandLate, result.Band)
	assert.True(t, result.NeedsReplacement)

	// Seat stays held for the replacement search
	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 2, shift.CurrentParticipants)
}

func TestCancelEarlyAboveMinimumReleases(t *testing.T) {
	f := newFixture(t)
	// 5 days out → early band, but coverage stays above minimum
	f.seedShift(t, "shift-1", 5*24*time.Hour, 1, 3, 1)
	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	result, err := f.ledger.Cancel(f.ctx, a.ID, "clash")
	require.NoError(t, err)
	assert.Equal(t, model.BandEarly, result.Band)
	assert.False(t, result.NeedsReplacement)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 1, shift.CurrentParticipants)
}

func TestCancelTwiceIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 10*24*time.Hour, 1, 3, 0)
	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	_, err = f.ledger.Cancel(f.ctx, a.ID, "first")
	require.NoError(t, err)

	_, err = f.ledger.Cancel(f.ctx, a.ID, "second")
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Capacity released exactly once
	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)
}

func TestCompleteStampsCheckOutAndDuration(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 2*time.Hour, 1, 3, 0)
	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.ledger.CheckIn(f.ctx, a.ID))

	f.clock.Advance(11 * time.Hour)
	result, err := f.ledger.Complete(f.ctx, a.ID, CompleteOptions{Rating: 5, Feedback: "quiet night"})
	require.NoError(t, err)
	assert.Equal(t, 11*time.Hour, result.ActualDuration)
	assert.Equal(t, model.AssignmentCompleted, result.Assignment.Status)
	assert.Equal(t, 5, result.Assignment.Rating)
	require.NotNil(t, result.Assignment.CheckOutAt)
}

func TestCompleteOnlyFromConfirmed(t *testing.T) {
	f := newFixture(t)
	f.seedShift(t, "shift-1", 2*time.Hour, 1, 3, 0)
	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentAutomatic)
	require.NoError(t, err)

	_, err = f.ledger.Complete(f.ctx, a.ID, CompleteOptions{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdoptSeatDoesNotReserve(t *testing.T) {
	f := newFixture(t)
	// One seat already reserved out-of-band (held by an activation)
	f.seedShift(t, "shift-1", 48*time.Hour, 1, 2, 1)

	a, err := f.ledger.AdoptSeat(f.ctx, "shift-1", "", "member-1", model.AssignmentWaitingList)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentConfirmed, a.Status)
	assert.Equal(t, model.AssignmentWaitingList, a.Type)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 1, shift.CurrentParticipants)
}
