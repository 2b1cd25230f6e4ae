package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/cmd/cli/commands"
	"github.com/acrivain/guardpost/internal/config"
	"github.com/acrivain/guardpost/pkg/core/activation"
	"github.com/acrivain/guardpost/pkg/core/capacity"
	"github.com/acrivain/guardpost/pkg/core/ledger"
	"github.com/acrivain/guardpost/pkg/core/replacement"
	"github.com/acrivain/guardpost/pkg/core/waitlist"
	"github.com/acrivain/guardpost/pkg/notify"
	"github.com/acrivain/guardpost/pkg/postgres"
	"github.com/acrivain/guardpost/pkg/utils/clock"
	"github.com/acrivain/guardpost/pkg/utils/logging"
)

var (
	configPath string
	verbose    bool
	app        *commands.AppContext
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "guardpost",
		Short: "Guardpost CLI - Coordinate volunteer guard shifts",
		Long:  `A CLI tool for coordinating volunteer guard shifts: capacity, cancellations, replacements, and waiting-list activation.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.Logger != nil {
				app.Logger.Sync()
			}
			if app != nil && app.Database != nil {
				app.Database.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default: guardpost_config.yaml in cwd or home)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	rootCmd.AddCommand(
		migrateCmd(),
		commands.DefineShiftsCmd(appRef()),
		commands.ListShiftsCmd(appRef()),
		commands.RequestAssignmentCmd(appRef()),
		commands.CancelAssignmentCmd(appRef()),
		commands.RespondActivationCmd(appRef()),
		commands.RespondReplacementCmd(appRef()),
		commands.RunActivationCycleCmd(appRef()),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appRef returns the shared AppContext. It is allocated up front so command
// constructors can capture it before initApp fills it in.
func appRef() *commands.AppContext {
	if app == nil {
		app = &commands.AppContext{Ctx: context.Background()}
	}
	return app
}

// initApp sets up logger, config, database, and the scheduling components
func initApp() error {
	var err error
	app = appRef()

	app.Logger, err = logging.InitLogger("guardpost", verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Loading configuration")
	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
	} else {
		app.Cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("scope", app.Cfg.Scope))

	app.Logger.Info("Connecting to database")
	app.Database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Logger.Debug("Database connection established")

	app.Clock = clock.Real{}
	app.Notifier = notify.NewRetryingGateway(notify.NewLogGateway(app.Logger), 3, time.Second, app.Logger)

	seats := capacity.NewStore(app.Database, app.Database, app.Logger)
	app.Ledger = ledger.New(app.Database, app.Database, seats, app.Clock, app.Logger)
	app.Queue = waitlist.New(app.Database, app.Database, app.Database, app.Clock, app.Logger)
	app.Workflow = replacement.New(app.Database, app.Ledger, seats, app.Clock, app.Logger)
	app.Scheduler = activation.New(app.Database, app.Database, app.Queue, seats, app.Ledger, app.Notifier, app.Clock, app.Logger)

	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Database.RunMigrations(app.Ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("\n✓ Database schema up to date\n\n")
			return nil
		},
	}
}
