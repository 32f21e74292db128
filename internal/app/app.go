// Package app assembles the ledger services from configuration. It is shared
// by the HTTP server and the kasactl operator tool.
package app

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"kasa/internal/config"
	"kasa/internal/events"
	"kasa/internal/fxrate"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/services"
)

// App holds the wired services of one process.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Rates     *fxrate.CachedProvider
	RateStore *fxrate.StoreProvider
	Publisher events.Publisher

	Users         services.UserServicer
	Accounts      services.AccountServicer
	Categories    services.CategoryServicer
	Commissions   services.CommissionServicer
	Transactions  services.TransactionServicer
	Transfers     services.TransferServicer
	Subscriptions services.SubscriptionServicer
	Audit         services.AuditServicer

	closers []func() error
}

// New wires every service against db.
func New(cfg *config.Config, db *gorm.DB) (*App, error) {
	store, err := NewRateStore(cfg, db)
	if err != nil {
		return nil, err
	}
	publisher, closePublisher, err := NewPublisher(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		DB:        db,
		Rates:     fxrate.NewCachedProvider(store, cfg.FXCacheTTL),
		RateStore: store,
		Publisher: publisher,
	}
	if closePublisher != nil {
		a.closers = append(a.closers, closePublisher)
	}

	a.Users = services.NewUserService(db)
	a.Accounts = services.NewAccountService(db)
	a.Categories = services.NewCategoryService(db)
	a.Audit = services.NewAuditService(db)
	a.Commissions = services.NewCommissionService(db, publisher, cfg.EnforcePayoutLimit)
	a.Transactions = services.NewTransactionService(db, a.Accounts, a.Categories, a.Commissions, a.Rates, publisher)
	a.Transfers = services.NewTransferService(db, a.Accounts, a.Categories, a.Rates, publisher)
	a.Subscriptions = services.NewSubscriptionService(db, a.Transactions, publisher)

	return a, nil
}

// NewRateStore builds the persisted rate store in front of the configured
// upstream provider.
func NewRateStore(cfg *config.Config, db *gorm.DB) (*fxrate.StoreProvider, error) {
	switch cfg.FXProvider {
	case "static":
		quotes, err := fxrate.ParseStaticQuotes(cfg.FXStaticRates)
		if err != nil {
			return nil, fmt.Errorf("parsing FX_STATIC_RATES: %w", err)
		}
		return fxrate.NewStoreProvider(db, fxrate.NewStaticProvider(quotes), models.RateSourceStatic), nil
	default:
		tcmb := fxrate.NewTCMBProvider(
			&http.Client{Timeout: cfg.FXRequestTimeout},
			fxrate.WithBaseURL(cfg.FXBaseURL),
			fxrate.WithLookback(cfg.FXLookbackDays),
			fxrate.WithLogger(logger.Named("fxrate")),
		)
		return fxrate.NewStoreProvider(db, tcmb, models.RateSourceTCMB), nil
	}
}

// NewPublisher logs every ledger event and also publishes it to RabbitMQ
// when RABBITMQ_URI is set. The returned close func may be nil.
func NewPublisher(cfg *config.Config) (events.Publisher, func() error, error) {
	logPublisher := events.NewLogPublisher(logger.Named("events"))
	if cfg.RabbitMQURI == "" {
		return logPublisher, nil, nil
	}

	amqpPublisher, err := events.DialAMQP(cfg.RabbitMQURI, cfg.RabbitMQExchange)
	if err != nil {
		return nil, nil, err
	}
	logger.Get().Infow("publishing ledger events", "exchange", cfg.RabbitMQExchange)
	return events.Multi{logPublisher, amqpPublisher}, amqpPublisher.Close, nil
}

// Close releases the resources opened by New.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
