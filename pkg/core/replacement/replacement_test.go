package replacement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db/memstore"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

type fixture struct {
	workflow *Workflow
	ledger   *ledger.Ledger
	mem      *memstore.Store
	clock    *clock.Fake
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	seats := capacity.NewStore(mem, mem, zap.NewNop())
	led := ledger.New(mem, mem, seats, clk, zap.NewNop())
	return &fixture{
		workflow: New(mem, led, seats, clk, zap.NewNop()),
		ledger:   led,
		mem:      mem,
		clock:    clk,
		ctx:      context.Background(),
	}
}

// lateCancel seeds a shift 30 hours out with coverage at the minimum,
// assigns a member, and cancels late so the seat is held. Returns the
// cancelled assignment.
func (f *fixture) lateCancel(t *testing.T) *model.Assignment {
	t.Helper()
	start := f.clock.Now().Add(30 * time.Hour)
	require.NoError(t, f.mem.InsertShift(f.ctx, &model.Shift{
		ID:                  "shift-1",
		Scope:               "north",
		Date:                start.Truncate(24 * time.Hour),
		StartTime:           start,
		EndTime:             start.Add(12 * time.Hour),
		MinParticipants:     1,
		MaxParticipants:     2,
		CurrentParticipants: 0,
		Status:              model.ShiftOpen,
	}))

	a, err := f.ledger.Create(f.ctx, "shift-1", "", "member-1", model.AssignmentVoluntary)
	require.NoError(t, err)

	result, err := f.ledger.Cancel(f.ctx, a.ID, "sick")
	require.NoError(t, err)
	require.Equal(t, model.BandLate, result.Band)
	require.True(t, result.NeedsReplacement)
	return result.Assignment
}

func TestOpenSetsFourHourDeadline(t *testing.T) {
	f := newFixture(t)
	cancelled := f.lateCancel(t)

	r, err := f.workflow.Open(f.ctx, cancelled, "member-2")
	require.NoError(t, err)
	assert.Equal(t, model.ReplacementPending, r.Status)
	assert.Equal(t, f.clock.Now().Add(4*time.Hour), r.Deadline)
	assert.Equal(t, cancelled.ID, r.AssignmentID)
}

func TestOpenRequiresCancelledAssignment(t *testing.T) {
	f := newFixture(t)
	_, err := f.workflow.Open(f.ctx, &model.Assignment{Status: model.AssignmentConfirmed}, "member-2")
	assert.Error(t, err)
}

func TestAcceptAdoptsHeldSeat(t *testing.T) {
	f := newFixture(t)
	cancelled := f.lateCancel(t)
	r, err := f.workflow.Open(f.ctx, cancelled, "member-2")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	status, err := f.workflow.Respond(f.ctx, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ReplacementAccepted, status)

	// The replacement holds the seat the cancellation kept reserved
	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 1, shift.CurrentParticipants)

	replacement, err := f.mem.GetActiveAssignment(f.ctx, "shift-1", "member-2")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentConfirmed, replacement.Status)
	assert.Equal(t, model.AssignmentAssigned, replacement.Type)

	// Active count matches occupancy again once the workflow settles
	count, err := f.mem.CountActiveAssignments(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, shift.CurrentParticipants, count)
}

func TestRejectReleasesSeat(t *testing.T) {
	f := newFixture(t)
	cancelled := f.lateCancel(t)
	r, err := f.workflow.Open(f.ctx, cancelled, "member-2")
	require.NoError(t, err)

	status, err := f.workflow.Respond(f.ctx, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ReplacementRejected, status)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)
	assert.Equal(t, model.ShiftOpen, shift.Status)
}

func TestLateResponseExpiresWorkflow(t *testing.T) {
	f := newFixture(t)
	cancelled := f.lateCancel(t)
	r, err := f.workflow.Open(f.ctx, cancelled, "member-2")
	require.NoError(t, err)

	f.clock.Advance(4*time.Hour + time.Minute)
	status, err := f.workflow.Respond(f.ctx, r.ID, true)
	assert.ErrorIs(t, err, ErrDeadlineExpired)
	assert.Equal(t, model.ReplacementExpired, status)

	// Seat returned to the pool exactly once
	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)

	// A second response just reports the settled status
	status, err = f.workflow.Respond(f.ctx, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ReplacementExpired, status)
	shift, err = f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)
}

func TestSweepExpiresOverdueWorkflows(t *testing.T) {
	f := newFixture(t)
	cancelled := f.lateCancel(t)
	r, err := f.workflow.Open(f.ctx, cancelled, "member-2")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Hour)
	expired, err := f.workflow.Sweep(f.ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	settled, err := f.mem.GetReplacement(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReplacementExpired, settled.Status)

	shift, err := f.mem.GetShift(f.ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)
}
