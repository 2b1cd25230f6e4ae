package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/acrivain/guardpost/internal/config"
	"github.com/acrivain/guardpost/pkg/core/activation"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/replacement"
	"github.com/acrivain/guardpost/pkg/core/waitlist"
	"github.com/acrivain/guardpost/pkg/notify"
	"github.com/acrivain/guardpost/pkg/postgres"
	"github.com/acrivain/guardpost/pkg/utils/clock"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg       *config.Config
	Database  *postgres.DB
	Ledger    *ledger.Ledger
	Queue     *waitlist.Queue
	Workflow  *replacement.Workflow
	Scheduler *activation.Scheduler
	Notifier  notify.Gateway
	Clock     clock.Clock
	Logger    *zap.Logger
	Ctx       context.Context
}
