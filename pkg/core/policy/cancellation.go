// Package policy holds the pure scheduling policy functions: the
// cancellation-band classifier and the waiting-list priority scorer.
// Both are deterministic and side-effect free.
package policy

import (
	"time"

	"github.com/acrivain/guardpost/pkg/core/model"
)

const (
	// NormalCancellationLead is the minimum lead time for a normal-band
	// cancellation. At exactly seven days the cancellation is still normal.
	NormalCancellationLead = 7 * 24 * time.Hour

	// EarlyCancellationLead is the minimum lead time for an early-band
	// cancellation. At exactly 72 hours the cancellation is still early.
	EarlyCancellationLead = 72 * time.Hour
)

// ClassifyCancellation maps the time remaining until shift start to a
// cancellation band. The band routes policy (replacement urgency,
// notification tone); it never blocks the cancellation itself.
func ClassifyCancellation(untilStart time.Duration) model.CancellationBand {
	switch {
	case untilStart >= NormalCancellationLead:
		return model.BandNormal
	case untilStart >= EarlyCancellationLead:
		return model.BandEarly
	default:
		return model.BandLate
	}
}

// ForcesReplacement reports whether a cancellation in this band must seek a
// substitute when minimum coverage is threatened.
func ForcesReplacement(band model.CancellationBand) bool {
	return band == model.BandEarly || band == model.BandLate
}
