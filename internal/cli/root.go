// Package cli holds the kasactl operator commands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kasa/internal/app"
	"kasa/internal/config"
	"kasa/internal/database"
	"kasa/internal/logger"
	"kasa/internal/schedule"
)

const dayLayout = "2006-01-02"

// Opener connects to the ledger for one command run. The returned func
// releases everything it opened.
type Opener func(ctx context.Context) (*app.App, func() error, error)

// OpenFromEnv loads the configuration from the environment, connects to the
// database and wires the services.
func OpenFromEnv(_ context.Context) (*app.App, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	ledger, err := app.New(cfg, dbManager.DB())
	if err != nil {
		_ = dbManager.Close()
		return nil, nil, err
	}

	closeAll := func() error {
		appErr := ledger.Close()
		if err := dbManager.Close(); err != nil {
			return err
		}
		return appErr
	}
	return ledger, closeAll, nil
}

// NewRootCmd builds the kasactl command tree on top of open.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "kasactl",
		Short: "Operate a kasa ledger from the command line",
		Long: `kasactl runs ledger operations directly against the kasa database:
look up and override exchange rates, list due subscriptions, export
transaction history to CSV and summarize commissions.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRatesCmd(open),
		newSubscriptionsCmd(open),
		newTransactionsCmd(open),
		newCommissionsCmd(open),
	)
	return root
}

// withApp opens the ledger, runs fn and closes the ledger again.
func withApp(cmd *cobra.Command, open Opener, fn func(ctx context.Context, ledger *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ledger, closeAll, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeAll(); err != nil {
			logger.Get().Warnw("closing ledger", "error", err)
		}
	}()

	return fn(ctx, ledger)
}

// parseDay parses a YYYY-MM-DD flag value. An empty value yields the zero time.
func parseDay(flag, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD", flag, raw)
	}
	return t, nil
}

func parseOptionalDay(flag, raw string) (*time.Time, error) {
	t, err := parseDay(flag, raw)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

// endOfDay moves an inclusive day bound to its last instant.
func endOfDay(day *time.Time) *time.Time {
	if day == nil {
		return nil
	}
	end := schedule.EndOfDay(*day)
	return &end
}
