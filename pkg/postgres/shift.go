package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/acrivain/guardpost/pkg/core/model"
)

const shiftColumns = `id, scope, date, start_time, end_time, min_participants,
	max_participants, current_participants, version, status, type, tier,
	template_id, deleted_at`

func scanShift(row interface{ Scan(dest ...any) error }) (model.Shift, error) {
	var s model.Shift
	var status, shiftType, tier string
	err := row.Scan(&s.ID, &s.Scope, &s.Date, &s.StartTime, &s.EndTime,
		&s.MinParticipants, &s.MaxParticipants, &s.CurrentParticipants,
		&s.Version, &status, &shiftType, &tier, &s.TemplateID, &s.DeletedAt)
	if err != nil {
		return model.Shift{}, err
	}
	s.Status = model.ShiftStatus(status)
	s.Type = model.ShiftType(shiftType)
	s.Tier = model.PriorityTier(tier)
	return s, nil
}

// GetShift retrieves a shift by ID
func (d *DB) GetShift(ctx context.Context, id string) (model.Shift, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shift
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	shift, err := scanShift(row)
	if err != nil {
		return model.Shift{}, fmt.Errorf("failed to get shift: %w", notFound(err))
	}
	return shift, nil
}

// InsertShift inserts a new shift record
func (d *DB) InsertShift(ctx context.Context, shift *model.Shift) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO shift (id, scope, date, start_time, end_time,
			min_participants, max_participants, current_participants,
			version, status, type, tier, template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, shift.ID, shift.Scope, shift.Date, shift.StartTime, shift.EndTime,
		shift.MinParticipants, shift.MaxParticipants, shift.CurrentParticipants,
		shift.Version, string(shift.Status), string(shift.Type),
		string(shift.Tier), shift.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

// ListShiftsBetween retrieves all live shifts dated within [from, to]
func (d *DB) ListShiftsBetween(ctx context.Context, from, to time.Time) ([]model.Shift, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shift
		WHERE date >= $1 AND date <= $2 AND deleted_at IS NULL
		ORDER BY date, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shifts: %w", err)
	}
	return shifts, nil
}

// CompareAndSwapOccupancy writes the new occupancy and status only when the
// stored version still matches. The version bump serializes concurrent
// writers; a false return means the caller must re-read and retry.
func (d *DB) CompareAndSwapOccupancy(ctx context.Context, id string, version int64, occupancy int, status model.ShiftStatus) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE shift
		SET current_participants = $3, status = $4, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`, id, version, occupancy, string(status))
	if err != nil {
		return false, fmt.Errorf("failed to update shift occupancy: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetSlot retrieves a slot by ID
func (d *DB) GetSlot(ctx context.Context, id string) (model.Slot, error) {
	var s model.Slot
	var status string
	err := d.pool.QueryRow(ctx, `
		SELECT id, shift_id, start_time, end_time, min_participants,
			max_participants, current_participants, version, status,
			required_capabilities
		FROM slot
		WHERE id = $1
	`, id).Scan(&s.ID, &s.ShiftID, &s.StartTime, &s.EndTime, &s.MinParticipants,
		&s.MaxParticipants, &s.CurrentParticipants, &s.Version, &status,
		&s.RequiredCapabilities)
	if err != nil {
		return model.Slot{}, fmt.Errorf("failed to get slot: %w", notFound(err))
	}
	s.Status = model.ShiftStatus(status)
	return s, nil
}

// InsertSlot inserts a new slot record
func (d *DB) InsertSlot(ctx context.Context, slot *model.Slot) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO slot (id, shift_id, start_time, end_time, min_participants,
			max_participants, current_participants, version, status,
			required_capabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, slot.ID, slot.ShiftID, slot.StartTime, slot.EndTime, slot.MinParticipants,
		slot.MaxParticipants, slot.CurrentParticipants, slot.Version,
		string(slot.Status), slot.RequiredCapabilities)
	if err != nil {
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

// ListSlotsForShift retrieves all slots belonging to a shift
func (d *DB) ListSlotsForShift(ctx context.Context, shiftID string) ([]model.Slot, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, shift_id, start_time, end_time, min_participants,
			max_participants, current_participants, version, status,
			required_capabilities
		FROM slot
		WHERE shift_id = $1
		ORDER BY id
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var s model.Slot
		var status string
		if err := rows.Scan(&s.ID, &s.ShiftID, &s.StartTime, &s.EndTime,
			&s.MinParticipants, &s.MaxParticipants, &s.CurrentParticipants,
			&s.Version, &status, &s.RequiredCapabilities); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		s.Status = model.ShiftStatus(status)
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}
	return slots, nil
}

// CompareAndSwapSlotOccupancy is the slot-level equivalent of
// CompareAndSwapOccupancy.
func (d *DB) CompareAndSwapSlotOccupancy(ctx context.Context, id string, version int64, occupancy int, status model.ShiftStatus) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE slot
		SET current_participants = $3, status = $4, version = version + 1
		WHERE id = $1 AND version = $2
	`, id, version, occupancy, string(status))
	if err != nil {
		return false, fmt.Errorf("failed to update slot occupancy: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
