package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/core/replacement"
	"github.com/acrivain/guardpost/pkg/db"
)

// ReplacementOutcome discriminates the result of a replacement response.
type ReplacementOutcome string

const (
	ReplacementAccepted ReplacementOutcome = "accepted"
	ReplacementRejected ReplacementOutcome = "rejected"
	ReplacementExpired  ReplacementOutcome = "expired"
	ReplacementNotFound ReplacementOutcome = "not_found"
)

// RespondToReplacement records the candidate's answer to a replacement
// request. Accepting before the deadline seats the candidate on the held
// seat; rejecting or answering late returns the seat to the pool.
func RespondToReplacement(
	ctx context.Context,
	workflow *replacement.Workflow,
	logger *zap.Logger,
	workflowID string,
	accept bool,
) (ReplacementOutcome, error) {
	status, err := workflow.Respond(ctx, workflowID, accept)

	switch {
	case errors.Is(err, db.ErrNotFound):
		return ReplacementNotFound, nil
	case errors.Is(err, replacement.ErrDeadlineExpired):
		logger.Info("Replacement response arrived after deadline",
			zap.String("workflow_id", workflowID))
		return ReplacementExpired, nil
	case err != nil:
		return "", fmt.Errorf("failed to respond to replacement: %w", err)
	}

	switch status {
	case model.ReplacementAccepted:
		return ReplacementAccepted, nil
	case model.ReplacementRejected:
		return ReplacementRejected, nil
	default:
		return ReplacementExpired, nil
	}
}
