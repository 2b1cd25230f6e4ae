package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

const entryColumns = `id, member_id, shift_id, slot_id, scope, target_date,
	priority, status, activation_date, response_deadline, response,
	responded_at, requested_at`

func scanEntry(row interface{ Scan(dest ...any) error }) (model.WaitingListEntry, error) {
	var e model.WaitingListEntry
	var status, response string
	err := row.Scan(&e.ID, &e.MemberID, &e.ShiftID, &e.SlotID, &e.Scope,
		&e.TargetDate, &e.Priority, &status, &e.ActivationDate,
		&e.ResponseDeadline, &response, &e.RespondedAt, &e.RequestedAt)
	if err != nil {
		return model.WaitingListEntry{}, err
	}
	e.Status = model.WaitingStatus(status)
	e.Response = model.WaitingResponse(response)
	return e, nil
}

// GetEntry retrieves a waiting-list entry by ID
func (d *DB) GetEntry(ctx context.Context, id string) (model.WaitingListEntry, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waiting_list_entry
		WHERE id = $1
	`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return model.WaitingListEntry{}, fmt.Errorf("failed to get waiting-list entry: %w", notFound(err))
	}
	return entry, nil
}

// GetActiveEntry retrieves the pending or activated entry for the
// (shift/slot, member) pair
func (d *DB) GetActiveEntry(ctx context.Context, shiftID, slotID, memberID string) (model.WaitingListEntry, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waiting_list_entry
		WHERE shift_id = $1 AND slot_id = $2 AND member_id = $3
			AND status IN ('pending', 'activated')
	`, shiftID, slotID, memberID)
	entry, err := scanEntry(row)
	if err != nil {
		return model.WaitingListEntry{}, fmt.Errorf("failed to get active entry: %w", notFound(err))
	}
	return entry, nil
}

// InsertEntry inserts a new waiting-list entry
func (d *DB) InsertEntry(ctx context.Context, e *model.WaitingListEntry) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO waiting_list_entry (id, member_id, shift_id, slot_id, scope,
			target_date, priority, status, activation_date, response_deadline,
			response, responded_at, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, e.ID, e.MemberID, e.ShiftID, e.SlotID, e.Scope, e.TargetDate, e.Priority,
		string(e.Status), e.ActivationDate, e.ResponseDeadline,
		string(e.Response), e.RespondedAt, e.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to insert waiting-list entry: %w", conflict(err))
	}
	return nil
}

// UpdateEntry persists the mutable fields of a waiting-list entry
func (d *DB) UpdateEntry(ctx context.Context, e *model.WaitingListEntry) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE waiting_list_entry
		SET priority = $2, status = $3, response_deadline = $4, response = $5,
			responded_at = $6
		WHERE id = $1
	`, e.ID, e.Priority, string(e.Status), e.ResponseDeadline,
		string(e.Response), e.RespondedAt)
	if err != nil {
		return fmt.Errorf("failed to update waiting-list entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update waiting-list entry %s: %w", e.ID, db.ErrNotFound)
	}
	return nil
}

// PendingEntries retrieves a shift's pending entries in service order:
// lowest priority score first, ties broken by request time
func (d *DB) PendingEntries(ctx context.Context, shiftID string) ([]model.WaitingListEntry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM waiting_list_entry
		WHERE shift_id = $1 AND status = 'pending'
		ORDER BY priority, requested_at
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// OverdueActivatedEntries retrieves activated entries whose response
// deadline passed at or before asOf
func (d *DB) OverdueActivatedEntries(ctx context.Context, asOf time.Time) ([]model.WaitingListEntry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM waiting_list_entry
		WHERE status = 'activated' AND response_deadline <= $1
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// CountPendingEntries counts a shift's pending entries
func (d *DB) CountPendingEntries(ctx context.Context, shiftID string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM waiting_list_entry
		WHERE shift_id = $1 AND status = 'pending'
	`, shiftID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return count, nil
}

type entryRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectEntries(rows entryRows) ([]model.WaitingListEntry, error) {
	var entries []model.WaitingListEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waiting-list entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waiting-list entries: %w", err)
	}
	return entries, nil
}
