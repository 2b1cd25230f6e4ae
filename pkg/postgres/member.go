package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/acrivain/guardpost/pkg/core/model"
)

// GetMember retrieves a member by ID
func (d *DB) GetMember(ctx context.Context, id string) (model.Member, error) {
	var m model.Member
	err := d.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, scope, joined_at, capabilities
		FROM member
		WHERE id = $1
	`, id).Scan(&m.ID, &m.FirstName, &m.LastName, &m.Scope, &m.JoinedAt, &m.Capabilities)
	if err != nil {
		return model.Member{}, fmt.Errorf("failed to get member: %w", notFound(err))
	}
	return m, nil
}

// MemberHistory aggregates the priority-scoring inputs for a member as of
// the given instant. An unknown member yields a zero history rather than an
// error, so scoring degrades to the newcomer baseline.
func (d *DB) MemberHistory(ctx context.Context, memberID string, asOf time.Time) (model.MemberHistory, error) {
	var h model.MemberHistory

	var joinedAt *time.Time
	err := d.pool.QueryRow(ctx, `
		SELECT joined_at FROM member WHERE id = $1
	`, memberID).Scan(&joinedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.MemberHistory{}, fmt.Errorf("failed to read member join date: %w", err)
	}
	if joinedAt != nil && joinedAt.Before(asOf) {
		h.YearsActive = int(asOf.Sub(*joinedAt).Hours() / (24 * 365))
	}

	err = d.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM assignment
		WHERE member_id = $1 AND status = 'completed' AND completed_at > $2
	`, memberID, asOf.AddDate(0, 0, -90)).Scan(&h.CompletedLast90Days)
	if err != nil {
		return model.MemberHistory{}, fmt.Errorf("failed to count completed assignments: %w", err)
	}

	err = d.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM waiting_list_entry
		WHERE member_id = $1 AND response = 'declined' AND responded_at > $2
	`, memberID, asOf.AddDate(0, 0, -30)).Scan(&h.DeclinedLast30Days)
	if err != nil {
		return model.MemberHistory{}, fmt.Errorf("failed to count declined offers: %w", err)
	}

	return h, nil
}
