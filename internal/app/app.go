// Package app wires configuration into a running ledger: storage, locks,
// event delivery, metrics and the services built on them.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/ledger-engine/internal/config"
	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/events"
	"github.com/josh-kwaku/ledger-engine/internal/handler"
	"github.com/josh-kwaku/ledger-engine/internal/lock"
	"github.com/josh-kwaku/ledger-engine/internal/metrics"
	"github.com/josh-kwaku/ledger-engine/internal/middleware"
	"github.com/josh-kwaku/ledger-engine/internal/repository"
	"github.com/josh-kwaku/ledger-engine/internal/repository/memory"
	"github.com/josh-kwaku/ledger-engine/internal/service"
	"github.com/josh-kwaku/ledger-engine/internal/service/ledger"
)

const Version = "1.0.0"

type App struct {
	cfg    *config.Config
	logger *slog.Logger

	db            *sql.DB
	redis         redis.UniversalClient
	meterProvider *sdkmetric.MeterProvider
	dispatcher    *events.Dispatcher

	Ledger   *ledger.Service
	Accounts *service.AccountService
	Health   *handler.HealthHandler
	Metrics  *handler.MetricsHandler
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}

	if cfg.UsesRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	reader := sdkmetric.NewManualReader()
	a.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(a.meterProvider)
	recorder, err := metrics.NewGlobal()
	if err != nil {
		return err
	}

	defaultLimit, err := domain.ParseMoney(cfg.DefaultCreditLimit)
	if err != nil {
		return fmt.Errorf("DEFAULT_CREDIT_LIMIT: %w", err)
	}

	locks := a.locker()
	a.dispatcher = events.NewDispatcher(a.publisher(), cfg.EventBuffer, a.logger)

	a.Ledger = ledger.NewService(
		store.accounts,
		store.transactions,
		store.units,
		locks,
		a.dispatcher,
		recorder,
		ledger.Options{
			Currency:         cfg.Currency,
			StatementWindow:  cfg.StatementWindow(),
			ReplayMaxRetries: cfg.ReplayMaxRetries,
			Clock:            time.Now,
		},
	)
	a.Accounts = service.NewAccountService(store.accounts, store.units, locks, a.dispatcher, recorder, service.AccountOptions{
		DefaultCreditLimit: defaultLimit,
	})

	var dbCheck handler.Pinger
	if a.db != nil {
		dbCheck = a.db
	}
	a.Health = handler.NewHealthHandler(Version, dbCheck)
	if a.redis != nil {
		a.Health.WithCheck("redis", handler.PingFunc(func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}
	a.Metrics = handler.NewMetricsHandler(reader)

	a.logger.Info("ledger initialised",
		"storage_backend", cfg.StorageBackend,
		"lock_backend", cfg.LockBackend,
		"event_sink", cfg.EventSink,
		"currency", cfg.Currency,
	)
	return nil
}

type accountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
}

type transactionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.LedgerTransaction, error)
	ListByAccountAndPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]domain.LedgerTransaction, error)
}

type storage struct {
	accounts     accountStore
	transactions transactionStore
	units        repository.UnitOfWork
}

func (a *App) openStorage(ctx context.Context) (storage, error) {
	cfg := a.cfg
	if cfg.StorageBackend == "memory" {
		a.logger.Warn("using in-memory storage, ledger state is lost on exit")
		s := memory.NewStore()
		return storage{accounts: s.Accounts(), transactions: s.Transactions(), units: s}, nil
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		ConnectTimeout:   time.Duration(cfg.DBConnectTimeoutS) * time.Second,
	})
	if err != nil {
		return storage{}, err
	}
	a.db = db

	if cfg.AutoMigrate {
		if err := repository.Migrate(db, cfg.MigrationsDir); err != nil {
			return storage{}, err
		}
	}

	pg := repository.NewDB(db)
	return storage{accounts: pg.Accounts(), transactions: pg.Transactions(), units: pg}, nil
}

type locker interface {
	Lock(ctx context.Context, ids ...uuid.UUID) (func(), error)
}

func (a *App) locker() locker {
	if a.cfg.LockBackend == "redis" {
		opts := lock.DefaultRedisOptions()
		opts.Expiry = time.Duration(a.cfg.LockExpiryS) * time.Second
		opts.Tries = a.cfg.LockTries
		return lock.NewRedis(a.redis, opts)
	}
	return lock.NewKeyed()
}

func (a *App) publisher() events.Publisher {
	logSink := events.NewLogPublisher(a.logger)
	if a.cfg.EventSink == "redis" {
		return events.Fanout(logSink,
			events.NewRedisPublisher(a.redis, a.cfg.EventChannel, events.DefaultBreakerConfig(), a.logger))
	}
	return logSink
}

// StartDispatcher delivers events in the background. The returned stop
// function flushes pending events and waits for delivery to finish.
func (a *App) StartDispatcher(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.dispatcher.Start(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Serve runs the ops HTTP server and event delivery, plus any extra
// workers, until ctx is done or one of them fails.
func (a *App) Serve(ctx context.Context, workers ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.dispatcher.Start(gctx)
		return nil
	})

	srv := a.opsServer()
	g.Go(func() error {
		a.logger.Info("ops server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.logger.Info("shutting down ops server")
		return srv.Shutdown(shutdownCtx)
	})

	for _, w := range workers {
		g.Go(func() error { return w(gctx) })
	}

	return g.Wait()
}

func (a *App) opsServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.Health.Liveness)
	mux.HandleFunc("GET /ready", a.Health.Readiness)
	mux.HandleFunc("GET /metrics", a.Metrics.Snapshot)

	var h http.Handler = mux
	h = middleware.Logging(h)
	h = middleware.Tracing(h)
	h = middleware.Recovery(h)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) Close() error {
	var errs []error
	if a.meterProvider != nil {
		errs = append(errs, a.meterProvider.Shutdown(context.Background()))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
