// Package notify defines the outbound notification seam. Delivery
// mechanics live outside this system; domain code hands off a member id, a
// template kind and a payload, and never fails an operation on delivery
// errors.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TemplateKind selects the message template rendered by the delivery side.
type TemplateKind string

const (
	TemplateActivationOffer       TemplateKind = "activation_offer"
	TemplateActivationExpired     TemplateKind = "activation_expired"
	TemplateReplacementRequest    TemplateKind = "replacement_request"
	TemplateAssignmentConfirmed   TemplateKind = "assignment_confirmed"
	TemplateCancellationRecorded  TemplateKind = "cancellation_recorded"
	TemplateReplacementResolution TemplateKind = "replacement_resolution"
)

// Gateway delivers a notification to a member. Implementations retry on
// their own; a returned error is informational and must never roll back a
// domain transition.
type Gateway interface {
	Notify(ctx context.Context, memberID string, kind TemplateKind, payload map[string]string) error
}

// LogGateway records notifications in the log instead of delivering them.
// Useful for tests and for deployments where delivery is wired elsewhere.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Notify(ctx context.Context, memberID string, kind TemplateKind, payload map[string]string) error {
	g.logger.Info("Notification dispatched",
		zap.String("member_id", memberID),
		zap.String("template", string(kind)),
		zap.Any("payload", payload))
	return nil
}

// RetryingGateway decorates a gateway with fire-and-forget delivery and a
// fixed retry schedule. Notify always returns nil; failures are logged.
type RetryingGateway struct {
	next     Gateway
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

func NewRetryingGateway(next Gateway, attempts int, backoff time.Duration, logger *zap.Logger) *RetryingGateway {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingGateway{next: next, attempts: attempts, backoff: backoff, logger: logger}
}

func (g *RetryingGateway) Notify(ctx context.Context, memberID string, kind TemplateKind, payload map[string]string) error {
	go func() {
		// Detach from the caller's context: delivery outlives the
		// domain operation that triggered it.
		ctx := context.WithoutCancel(ctx)
		var err error
		for attempt := 1; attempt <= g.attempts; attempt++ {
			if err = g.next.Notify(ctx, memberID, kind, payload); err == nil {
				return
			}
			g.logger.Warn("Notification delivery failed",
				zap.String("member_id", memberID),
				zap.String("template", string(kind)),
				zap.Int("attempt", attempt),
				zap.Error(err))
			time.Sleep(g.backoff)
		}
		g.logger.Error("Notification abandoned after retries",
			zap.String("member_id", memberID),
			zap.String("template", string(kind)),
			zap.Error(err))
	}()
	return nil
}
