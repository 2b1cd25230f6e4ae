package postgres

import (
	"context"
	"fmt"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

const assignmentColumns = `id, shift_id, slot_id, member_id, type, status,
	cancellation_band, cancellation_reason, cancelled_at, check_in_at,
	check_out_at, completed_at, rating, feedback, created_at`

func scanAssignment(row interface{ Scan(dest ...any) error }) (model.Assignment, error) {
	var a model.Assignment
	var aType, status, band string
	err := row.Scan(&a.ID, &a.ShiftID, &a.SlotID, &a.MemberID, &aType, &status,
		&band, &a.CancellationReason, &a.CancelledAt, &a.CheckInAt,
		&a.CheckOutAt, &a.CompletedAt, &a.Rating, &a.Feedback, &a.CreatedAt)
	if err != nil {
		return model.Assignment{}, err
	}
	a.Type = model.AssignmentType(aType)
	a.Status = model.AssignmentStatus(status)
	a.CancellationBand = model.CancellationBand(band)
	return a, nil
}

// GetAssignment retrieves an assignment by ID
func (d *DB) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE id = $1
	`, id)
	assignment, err := scanAssignment(row)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to get assignment: %w", notFound(err))
	}
	return assignment, nil
}

// GetActiveAssignment retrieves the pending or confirmed assignment the
// member holds anywhere on the shift. The partial unique index guarantees
// at most one such row exists.
func (d *DB) GetActiveAssignment(ctx context.Context, shiftID, memberID string) (model.Assignment, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE shift_id = $1 AND member_id = $2
			AND status IN ('pending', 'confirmed')
	`, shiftID, memberID)
	assignment, err := scanAssignment(row)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to get active assignment: %w", notFound(err))
	}
	return assignment, nil
}

// InsertAssignment inserts a new assignment record
func (d *DB) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO assignment (id, shift_id, slot_id, member_id, type, status,
			cancellation_band, cancellation_reason, cancelled_at, check_in_at,
			check_out_at, completed_at, rating, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, a.ID, a.ShiftID, a.SlotID, a.MemberID, string(a.Type), string(a.Status),
		string(a.CancellationBand), a.CancellationReason, a.CancelledAt,
		a.CheckInAt, a.CheckOutAt, a.CompletedAt, a.Rating, a.Feedback, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", conflict(err))
	}
	return nil
}

// UpdateAssignment persists the mutable fields of an assignment
func (d *DB) UpdateAssignment(ctx context.Context, a *model.Assignment) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE assignment
		SET status = $2, cancellation_band = $3, cancellation_reason = $4,
			cancelled_at = $5, check_in_at = $6, check_out_at = $7,
			completed_at = $8, rating = $9, feedback = $10
		WHERE id = $1
	`, a.ID, string(a.Status), string(a.CancellationBand), a.CancellationReason,
		a.CancelledAt, a.CheckInAt, a.CheckOutAt, a.CompletedAt, a.Rating, a.Feedback)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update assignment %s: %w", a.ID, db.ErrNotFound)
	}
	return nil
}

// CountActiveAssignments counts the pending and confirmed assignments on a
// shift
func (d *DB) CountActiveAssignments(ctx context.Context, shiftID string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM assignment
		WHERE shift_id = $1 AND status IN ('pending', 'confirmed')
	`, shiftID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active assignments: %w", err)
	}
	return count, nil
}
