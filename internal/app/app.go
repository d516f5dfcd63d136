// Package app wires repositories, services and transport for both binaries.
package app

import (
	"fmt"
	"time"

	"billing/internal/config"
	"billing/internal/database"
	"billing/internal/locker"
	"billing/internal/logger"
	"billing/internal/repository"
	"billing/internal/service"
	"billing/internal/websocket"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Hub    *websocket.Hub
	Locks  *locker.Registry

	Payments service.PaymentService
	Invoices service.InvoiceService
	Audit    service.AuditService
	Reports  service.ReportService
}

// New connects to PostgreSQL, migrates when configured and builds the services.
func New(cfg *config.Config) (*App, error) {
	db, err := database.NewConnection(cfg.DSN(), database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnLifetime) * time.Second,
		LogQueries:      cfg.DBLogQueries,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if cfg.DBAutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	return NewWithDB(cfg, db), nil
}

// NewWithDB builds the services on an already opened database. The event hub
// is running on return; Close stops it.
func NewWithDB(cfg *config.Config, db *gorm.DB) *App {
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db, cfg.LockWait)

	locks := locker.NewRegistry(cfg.LockWait)
	hub := websocket.NewHub(logger.WithComponent("websocket"))
	go hub.Run()

	return &App{
		Config: cfg,
		DB:     db,
		Hub:    hub,
		Locks:  locks,
		Payments: service.NewPaymentService(invoiceRepo, paymentRepo, txManager, locks, hub, service.PaymentServiceConfig{
			RetryDelay: cfg.RetryDelay,
			Logger:     logger.WithComponent("payments"),
		}),
		Invoices: service.NewInvoiceService(invoiceRepo, paymentRepo, auditRepo, txManager, locks, hub,
			logger.WithComponent("invoices")),
		Audit:   service.NewAuditService(auditRepo),
		Reports: service.NewReportService(invoiceRepo, paymentRepo),
	}
}

// InitSentry enables error reporting when a DSN is configured.
func InitSentry(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		IgnoreErrors:     []string{"401", "403"},
		EnableTracing:    cfg.SentrySampleRate > 0,
		TracesSampleRate: cfg.SentrySampleRate,
	})
}

// Close stops the event hub and the connection pool.
func (a *App) Close() error {
	a.Hub.Stop()
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
