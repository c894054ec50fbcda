package cmd

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/provider"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/repository"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/service"
	"github.com/vibast-solutions/ms-go-payments-reconciler/config"
)

type pendingPaymentStorage interface {
	Find(ctx context.Context, key string) (*entity.PendingPayment, error)
	Save(ctx context.Context, key string, record *entity.PendingPayment) error
	Delete(ctx context.Context, key string) error
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type reconciliationEventRecorder interface {
	Create(ctx context.Context, event *entity.ReconciliationEvent) error
}

type dependencies struct {
	cfg        *config.Config
	storage    pendingPaymentStorage
	reconciler *service.Reconciler
	sessions   *service.SessionManager
	purge      *service.PurgeService
}

func mustCreateDependencies() (*dependencies, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	storage, events, cleanup := mustCreateStorage(cfg)

	verifier := provider.NewVerificationClient(provider.VerificationConfig{
		BaseURL:     cfg.Gateway.VerifyBaseURL,
		APIToken:    cfg.Gateway.APIToken,
		HTTPTimeout: cfg.Gateway.HTTPTimeout,
	})
	reconciler := service.NewReconciler(
		verifier,
		events,
		service.SystemClock(),
		service.NewPolicy(cfg.Reconcile),
		cfg.Reconcile.OrderURLTemplate,
	)

	deps := &dependencies{
		cfg:        cfg,
		storage:    storage,
		reconciler: reconciler,
		sessions:   service.NewSessionManager(reconciler, storage, cfg.Storage.RecordKey, cfg.Reconcile.SessionRetention),
		purge:      service.NewPurgeService(storage, cfg.Jobs.PurgeStaleAfter),
	}
	return deps, cleanup
}

// mustCreateStorage opens the configured pending-payment backend. The event log
// is only kept when MySQL is available.
func mustCreateStorage(cfg *config.Config) (pendingPaymentStorage, reconciliationEventRecorder, func()) {
	logger := logrus.WithField("backend", cfg.Storage.Backend)

	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := repository.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis")
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close redis client")
			}
		}
		logger.Info("Using redis pending payment storage")
		return repository.NewRedisPendingPaymentRepository(client, cfg.Storage.RecordTTL), nil, cleanup

	case config.StorageBackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.Ping(); err != nil {
			_ = db.Close()
			logger.WithError(err).Fatal("Failed to ping database")
		}

		cleanup := func() {
			if err := db.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close database")
			}
		}
		logger.Info("Using mysql pending payment storage")
		return repository.NewPendingPaymentRepository(db), repository.NewReconciliationEventRepository(db), cleanup

	default:
		logger.Info("Using in-memory pending payment storage")
		return repository.NewMemoryPendingPaymentRepository(), nil, func() {}
	}
}
