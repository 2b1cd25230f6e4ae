package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/activation"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db"
)

// ActivationOutcome discriminates the result of an activation response.
type ActivationOutcome string

const (
	ActivationAssigned ActivationOutcome = "assigned"
	ActivationExpired  ActivationOutcome = "expired"
	ActivationNotFound ActivationOutcome = "not_found"
)

// RespondToActivation records a member's answer to an activation offer.
// Late answers expire the offer and cascade to the next candidate.
func RespondToActivation(
	ctx context.Context,
	scheduler *activation.Scheduler,
	logger *zap.Logger,
	entryID string,
	accept bool,
) (ActivationOutcome, error) {
	status, err := scheduler.Respond(ctx, entryID, accept)

	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, activation.ErrNoOutstandingOffer):
		return ActivationNotFound, nil
	case errors.Is(err, activation.ErrDeadlineExpired):
		logger.Info("Activation response arrived after deadline",
			zap.String("entry_id", entryID))
		return ActivationExpired, nil
	case errors.Is(err, ledger.ErrDuplicateActive):
		// Member found a seat through another path since the offer; the
		// scheduler already expired the entry
		return ActivationExpired, nil
	case err != nil:
		return "", fmt.Errorf("failed to respond to activation: %w", err)
	}

	if status == model.WaitingAssigned {
		return ActivationAssigned, nil
	}
	return ActivationExpired, nil
}
