package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/internal/config"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

// DefineShiftsResult reports a template expansion run.
type DefineShiftsResult struct {
	ShiftsCreated int
	ShiftsSkipped int
	FirstDate     time.Time
	LastDate      time.Time
}

// DefineShifts expands the configured recurring templates into concrete
// shifts from the given start date over the horizon. Expansion is
// idempotent per (scope, start time): dates that already have a shift are
// skipped, so re-running after a config change only fills the gaps.
func DefineShifts(
	ctx context.Context,
	shifts db.ShiftStore,
	slots db.SlotStore,
	cfg *config.Config,
	logger *zap.Logger,
	from time.Time,
) (*DefineShiftsResult, error) {
	if len(cfg.ShiftTemplates) == 0 {
		return nil, fmt.Errorf("no shift templates configured - nothing to expand")
	}

	horizon := from.AddDate(0, 0, cfg.HorizonDays)
	logger.Info("Expanding shift templates",
		zap.Int("templates", len(cfg.ShiftTemplates)),
		zap.Time("from", from),
		zap.Time("until", horizon))

	existing, err := shifts.ListShiftsBetween(ctx, from, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing shifts: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, shift := range existing {
		seen[shiftKey(shift.Scope, shift.StartTime)] = true
	}

	result := &DefineShiftsResult{}

	for _, tpl := range cfg.ShiftTemplates {
		rule, err := rrule.StrToRRule(tpl.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for template %s: %w", tpl.Name, err)
		}
		rule.DTStart(from)

		for _, date := range rule.Between(from, horizon, true) {
			start, end, err := templateWindow(tpl, date)
			if err != nil {
				return nil, err
			}

			if seen[shiftKey(tpl.Scope, start)] {
				result.ShiftsSkipped++
				continue
			}

			shift := &model.Shift{
				ID:              uuid.New().String(),
				Scope:           tpl.Scope,
				Date:            date.Truncate(24 * time.Hour),
				StartTime:       start,
				EndTime:         end,
				MinParticipants: tpl.MinParticipants,
				MaxParticipants: tpl.MaxParticipants,
				Status:          model.ShiftOpen,
				Type:            model.ShiftType(tpl.Type),
				Tier:            templateTier(tpl),
				TemplateID:      tpl.Name,
			}
			if err := shifts.InsertShift(ctx, shift); err != nil {
				return nil, fmt.Errorf("failed to insert shift for %s: %w", tpl.Name, err)
			}

			// One slot per required capability tag, splitting the
			// shift's capacity evenly
			if err := expandSlots(ctx, slots, tpl, shift); err != nil {
				return nil, err
			}

			seen[shiftKey(tpl.Scope, start)] = true
			result.ShiftsCreated++
			if result.FirstDate.IsZero() || shift.Date.Before(result.FirstDate) {
				result.FirstDate = shift.Date
			}
			if shift.Date.After(result.LastDate) {
				result.LastDate = shift.Date
			}
		}
	}

	logger.Info("Shift templates expanded",
		zap.Int("created", result.ShiftsCreated),
		zap.Int("skipped", result.ShiftsSkipped))

	return result, nil
}

func shiftKey(scope string, start time.Time) string {
	return scope + "|" + start.UTC().Format(time.RFC3339)
}

// templateWindow resolves a template's HH:MM bounds against a concrete
// date. An end time earlier than the start rolls over to the next day.
func templateWindow(tpl config.ShiftTemplate, date time.Time) (time.Time, time.Time, error) {
	startClock, err := time.Parse("15:04", tpl.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startTime for template %s: %w", tpl.Name, err)
	}
	endClock, err := time.Parse("15:04", tpl.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endTime for template %s: %w", tpl.Name, err)
	}

	day := date.Truncate(24 * time.Hour)
	start := day.Add(time.Duration(startClock.Hour())*time.Hour + time.Duration(startClock.Minute())*time.Minute)
	end := day.Add(time.Duration(endClock.Hour())*time.Hour + time.Duration(endClock.Minute())*time.Minute)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func templateTier(tpl config.ShiftTemplate) model.PriorityTier {
	if tpl.Tier == "" {
		return model.TierRoutine
	}
	return model.PriorityTier(tpl.Tier)
}

func expandSlots(ctx context.Context, slots db.SlotStore, tpl config.ShiftTemplate, shift *model.Shift) error {
	if len(tpl.Slots) == 0 {
		return nil
	}
	if slots == nil {
		return errors.New("template defines slots but no slot store is wired")
	}

	per := shift.MaxParticipants / len(tpl.Slots)
	if per < 1 {
		per = 1
	}
	for _, capability := range tpl.Slots {
		slot := &model.Slot{
			ID:                   uuid.New().String(),
			ShiftID:              shift.ID,
			StartTime:            shift.StartTime,
			EndTime:              shift.EndTime,
			MinParticipants:      1,
			MaxParticipants:      per,
			Status:               model.ShiftOpen,
			RequiredCapabilities: []string{capability},
		}
		if err := slots.InsertSlot(ctx, slot); err != nil {
			return fmt.Errorf("failed to insert slot for %s: %w", tpl.Name, err)
		}
	}
	return nil
}
