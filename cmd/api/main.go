package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"kasa/internal/app"
	"kasa/internal/config"
	"kasa/internal/database"
	"kasa/internal/handlers"
	"kasa/internal/logger"
	"kasa/internal/middleware"
	"kasa/internal/validator"
)

// @title           Kasa API
// @version         1.0
// @description     Kasa is a multi-currency ledger: accounts, transactions, transfers, subscriptions and commissions, valued in Turkish lira.
// @host            localhost:8080
// @BasePath        /api/v1

// @securityDefinitions.apikey ActorID
// @in header
// @name X-Actor-ID

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("closing database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ledger, err := app.New(cfg, dbManager.DB())
	if err != nil {
		return fmt.Errorf("failed to wire services: %w", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			log.Warnw("closing event publisher", "error", err)
		}
	}()

	validator.Register()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, ledger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("starting kasa server", "port", cfg.Port, "fx_provider", cfg.FXProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, ledger *app.App) *gin.Engine {
	userHandler := handlers.NewUserHandler(ledger.Users, ledger.Audit)
	accountHandler := handlers.NewAccountHandler(ledger.Accounts, ledger.Audit)
	categoryHandler := handlers.NewCategoryHandler(ledger.Categories)
	transactionHandler := handlers.NewTransactionHandler(ledger.Transactions, ledger.Audit)
	subscriptionHandler := handlers.NewSubscriptionHandler(ledger.Subscriptions, ledger.Audit)
	transferHandler := handlers.NewTransferHandler(ledger.Transfers, ledger.Audit)
	rateHandler := handlers.NewRateHandler(ledger.Rates, ledger.RateStore, ledger.Audit)
	commissionHandler := handlers.NewCommissionHandler(ledger.Commissions, ledger.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	if cfg.APIKey != "" {
		v1.Use(middleware.APIKey(cfg.APIKey))
	}

	// Registration is the only route without an actor.
	v1.POST("/users", userHandler.CreateUser)

	protected := v1.Group("/")
	protected.Use(middleware.Actor(ledger.Users))

	protected.GET("/users/me", userHandler.GetMe)
	protected.PUT("/users/me/commission", userHandler.UpdateCommissionSettings)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.RecordTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/duplicate", subscriptionHandler.QuickDuplicate)
	transactions.POST("/:id/advance", subscriptionHandler.AdvanceSchedule)
	transactions.DELETE("/:id/subscription", subscriptionHandler.EndSubscription)

	protected.GET("/subscriptions/due", subscriptionHandler.DueSubscriptions)

	protected.POST("/transfers", transferHandler.Transfer)
	protected.POST("/atm", transferHandler.ATM)

	protected.GET("/rates/:currency", rateHandler.GetRate)
	protected.PUT("/rates/:currency", rateHandler.SaveRate)

	commissions := protected.Group("/commissions")
	commissions.GET("", commissionHandler.GetUserCommissions)
	commissions.GET("/summary", commissionHandler.Summary)
	commissions.POST("/payouts", commissionHandler.RecordPayout)

	return router
}
