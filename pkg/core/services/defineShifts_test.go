package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/internal/config"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db/memstore"
)

func weeklyConfig() *config.Config {
	return &config.Config{
		DatabaseURL: "postgres://localhost/guardpost",
		Scope:       "north",
		HorizonDays: 14,
		ShiftTemplates: []config.ShiftTemplate{
			{
				Name:            "friday-night",
				RRule:           "FREQ=WEEKLY;BYDAY=FR",
				Scope:           "north",
				StartTime:       "18:00",
				EndTime:         "06:00",
				MinParticipants: 2,
				MaxParticipants: 4,
				Type:            "night",
				Tier:            "elevated",
			},
		},
	}
}

func TestDefineShiftsExpandsTemplates(t *testing.T) {
	mem := memstore.New()
	ctx := context.Background()
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

	result, err := DefineShifts(ctx, mem, mem, weeklyConfig(), zap.NewNop(), from)
	require.NoError(t, err)

	// Two Fridays fall inside the 14-day horizon
	assert.Equal(t, 2, result.ShiftsCreated)
	assert.Equal(t, 0, result.ShiftsSkipped)

	shifts, err := mem.ListShiftsBetween(ctx, from, from.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, shifts, 2)

	first := shifts[0]
	assert.Equal(t, time.Friday, first.StartTime.Weekday())
	assert.Equal(t, 18, first.StartTime.Hour())
	// End time earlier than start rolls into the next day
	assert.Equal(t, first.StartTime.Add(12*time.Hour), first.EndTime)
	assert.Equal(t, 2, first.MinParticipants)
	assert.Equal(t, 4, first.MaxParticipants)
	assert.Equal(t, model.ShiftOpen, first.Status)
	assert.Equal(t, model.ShiftTypeNight, first.Type)
	assert.Equal(t, model.TierElevated, first.Tier)
	assert.Equal(t, "friday-night", first.TemplateID)
}

func TestDefineShiftsIsIdempotent(t *testing.T) {
	mem := memstore.New()
	ctx := context.Background()
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	first, err := DefineShifts(ctx, mem, mem, cfg, zap.NewNop(), from)
	require.NoError(t, err)
	require.Equal(t, 2, first.ShiftsCreated)

	second, err := DefineShifts(ctx, mem, mem, cfg, zap.NewNop(), from)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ShiftsCreated)
	assert.Equal(t, 2, second.ShiftsSkipped)

	shifts, err := mem.ListShiftsBetween(ctx, from, from.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.Len(t, shifts, 2)
}

func TestDefineShiftsCreatesCapabilitySlots(t *testing.T) {
	mem := memstore.New()
	ctx := context.Background()
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()
	cfg.ShiftTemplates[0].Slots = []string{"driver", "medic"}

	_, err := DefineShifts(ctx, mem, mem, cfg, zap.NewNop(), from)
	require.NoError(t, err)

	shifts, err := mem.ListShiftsBetween(ctx, from, from.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.NotEmpty(t, shifts)

	slots, err := mem.ListSlotsForShift(ctx, shifts[0].ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	var capabilities []string
	for _, slot := range slots {
		// Capacity splits evenly across the two slots
		assert.Equal(t, 2, slot.MaxParticipants)
		capabilities = append(capabilities, slot.RequiredCapabilities...)
	}
	assert.ElementsMatch(t, []string{"driver", "medic"}, capabilities)
}

func TestDefineShiftsRejectsEmptyTemplates(t *testing.T) {
	mem := memstore.New()
	cfg := &config.Config{DatabaseURL: "postgres://localhost/guardpost", Scope: "north", HorizonDays: 14}

	_, err := DefineShifts(context.Background(), mem, mem, cfg, zap.NewNop(), time.Now())
	assert.Error(t, err)
}

func TestListShiftsReportsDepthAndCoverage(t *testing.T) {
	h := newHarness(t)
	h.seedShift(t, "shift-1", 2*24*time.Hour, 2, 2, 0)

	holder, err := RequestAssignment(h.ctx, h.ledger, h.queue, h.gateway, h.logger, "shift-1", "", "member-a")
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, holder.Outcome)
	second, err := RequestAssignment(h.ctx, h.ledger, h.queue, h.gateway, h.logger, "shift-1", "", "member-b")
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, second.Outcome)
	queued, err := RequestAssignment(h.ctx, h.ledger, h.queue, h.gateway, h.logger, "shift-1", "", "member-c")
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, queued.Outcome)

	summaries, err := ListShifts(h.ctx, h.mem, h.mem, h.logger, h.clock.Now(), h.clock.Now().AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, "shift-1", summaries[0].Shift.ID)
	assert.Equal(t, 2, summaries[0].Shift.CurrentParticipants)
	assert.Equal(t, 1, summaries[0].WaitingDepth)
	assert.False(t, summaries[0].Understaffed)
}
