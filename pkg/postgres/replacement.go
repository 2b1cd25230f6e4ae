package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

const replacementColumns = `id, assignment_id, shift_id, slot_id,
	candidate_member_id, deadline, status, requested_at, responded_at`

func scanReplacement(row interface{ Scan(dest ...any) error }) (model.Replacement, error) {
	var r model.Replacement
	var status string
	err := row.Scan(&r.ID, &r.AssignmentID, &r.ShiftID, &r.SlotID,
		&r.CandidateMemberID, &r.Deadline, &status, &r.RequestedAt, &r.RespondedAt)
	if err != nil {
		return model.Replacement{}, err
	}
	r.Status = model.ReplacementStatus(status)
	return r, nil
}

// GetReplacement retrieves a replacement workflow by ID
func (d *DB) GetReplacement(ctx context.Context, id string) (model.Replacement, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+replacementColumns+`
		FROM replacement
		WHERE id = $1
	`, id)
	r, err := scanReplacement(row)
	if err != nil {
		return model.Replacement{}, fmt.Errorf("failed to get replacement: %w", notFound(err))
	}
	return r, nil
}

// InsertReplacement inserts a new replacement workflow
func (d *DB) InsertReplacement(ctx context.Context, r *model.Replacement) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO replacement (id, assignment_id, shift_id, slot_id,
			candidate_member_id, deadline, status, requested_at, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.AssignmentID, r.ShiftID, r.SlotID, r.CandidateMemberID,
		r.Deadline, string(r.Status), r.RequestedAt, r.RespondedAt)
	if err != nil {
		return fmt.Errorf("failed to insert replacement: %w", err)
	}
	return nil
}

// UpdateReplacement persists the mutable fields of a replacement workflow
func (d *DB) UpdateReplacement(ctx context.Context, r *model.Replacement) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE replacement
		SET status = $2, responded_at = $3
		WHERE id = $1
	`, r.ID, string(r.Status), r.RespondedAt)
	if err != nil {
		return fmt.Errorf("failed to update replacement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update replacement %s: %w", r.ID, db.ErrNotFound)
	}
	return nil
}

// OverduePendingReplacements retrieves pending workflows whose deadline
// passed at or before asOf
func (d *DB) OverduePendingReplacements(ctx context.Context, asOf time.Time) ([]model.Replacement, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+replacementColumns+`
		FROM replacement
		WHERE status = 'pending' AND deadline <= $1
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue replacements: %w", err)
	}
	defer rows.Close()

	var out []model.Replacement
	for rows.Next() {
		r, err := scanReplacement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan replacement: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replacements: %w", err)
	}
	return out, nil
}
