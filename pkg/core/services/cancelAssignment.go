package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/core/replacement"
	"github.com/acrivain/guardpost/pkg/db"
	"github.com/acrivain/guardpost/pkg/notify"
)

// CancelAssignmentResult reports a processed cancellation.
type CancelAssignmentResult struct {
	Found bool
	Band  model.CancellationBand

	// ReplacementWorkflowID is set when the cancellation opened a
	// replacement search.
	ReplacementWorkflowID string
}

// CancelAssignment cancels an assignment, classifies it by lead time, and
// opens a replacement workflow when minimum coverage is threatened and a
// candidate is available. Cancelling an already-terminal assignment reports
// Found=false and releases nothing.
func CancelAssignment(
	ctx context.Context,
	led *ledger.Ledger,
	workflow *replacement.Workflow,
	notifier notify.Gateway,
	logger *zap.Logger,
	assignmentID, reason, candidateMemberID string,
) (*CancelAssignmentResult, error) {
	result, err := led.Cancel(ctx, assignmentID, reason)
	if errors.Is(err, db.ErrNotFound) {
		return &CancelAssignmentResult{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel assignment: %w", err)
	}

	out := &CancelAssignmentResult{Found: true, Band: result.Band}

	notifier.Notify(ctx, result.Assignment.MemberID, notify.TemplateCancellationRecorded, map[string]string{
		"assignment_id": assignmentID,
		"band":          string(result.Band),
	})

	if !result.NeedsReplacement {
		return out, nil
	}

	if candidateMemberID == "" {
		// No substitute to ask; the held seat goes back to the pool and
		// the next activation cycle can fill it
		logger.Warn("Replacement needed but no candidate available, releasing seat",
			zap.String("assignment_id", assignmentID),
			zap.String("shift_id", result.Assignment.ShiftID))
		if err := led.ReleaseSeat(ctx, result.Assignment.ShiftID, result.Assignment.SlotID); err != nil {
			return nil, fmt.Errorf("failed to release seat without replacement candidate: %w", err)
		}
		return out, nil
	}

	wf, err := workflow.Open(ctx, result.Assignment, candidateMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to open replacement workflow: %w", err)
	}
	out.ReplacementWorkflowID = wf.ID

	notifier.Notify(ctx, candidateMemberID, notify.TemplateReplacementRequest, map[string]string{
		"workflow_id": wf.ID,
		"shift_id":    wf.ShiftID,
		"deadline":    wf.Deadline.Format("2006-01-02 15:04"),
	})

	return out, nil
}
