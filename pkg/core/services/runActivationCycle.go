package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/activation"
	"github.com/acrivain/guardpost/pkg/core/replacement"
)

// ActivationCycleResult summarizes one externally triggered scheduling
// cycle.
type ActivationCycleResult struct {
	ShiftsScanned       int
	EntriesActivated    int
	EntriesExpired      int
	ReplacementsExpired int
}

// RunActivationCycle runs one scheduling cycle as of the given instant:
// expire overdue replacement windows, then sweep activation deadlines and
// offer open seats on shifts within the activation lead. The trigger is
// external (cron, operator); this function never sleeps or reschedules.
func RunActivationCycle(
	ctx context.Context,
	scheduler *activation.Scheduler,
	workflow *replacement.Workflow,
	logger *zap.Logger,
	asOf time.Time,
) (*ActivationCycleResult, error) {
	logger.Info("Running activation cycle", zap.Time("as_of", asOf))

	replacementsExpired, err := workflow.Sweep(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep replacement deadlines: %w", err)
	}

	cycle, err := scheduler.RunCycle(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("activation cycle failed: %w", err)
	}

	result := &ActivationCycleResult{
		ShiftsScanned:       cycle.ShiftsScanned,
		EntriesActivated:    cycle.EntriesActivated,
		EntriesExpired:      cycle.EntriesExpired,
		ReplacementsExpired: replacementsExpired,
	}

	logger.Info("Activation cycle complete",
		zap.Int("shifts_scanned", result.ShiftsScanned),
		zap.Int("entries_activated", result.EntriesActivated),
		zap.Int("entries_expired", result.EntriesExpired),
		zap.Int("replacements_expired", result.ReplacementsExpired))

	return result, nil
}
