package daemon

import (
	"context"

	"github.com/matheus3301/mailcount/internal/account"
	"github.com/matheus3301/mailcount/internal/api"
	"github.com/matheus3301/mailcount/internal/config"
	"github.com/matheus3301/mailcount/internal/contacts"
	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/jobs"
	"github.com/matheus3301/mailcount/internal/lock"
	"github.com/matheus3301/mailcount/internal/logging"
	"github.com/matheus3301/mailcount/internal/messages"
	"github.com/matheus3301/mailcount/internal/notify"
	"github.com/matheus3301/mailcount/internal/status"
	"github.com/matheus3301/mailcount/internal/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved account passed to the fx module.
type Params struct {
	Account    string
	SocketPath string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			notify.NewDispatcher,
			status.NewMachine,
			provideLock,
			provideStore,
			provideCounters,
			provideReconciler,
			provideQueue,
			provideImporter,
			provideMessageImporter,
			provideCounterService,
			api.NewContactService,
			api.NewMessageService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

// FxLogger sends fx's own provide, invoke and lifecycle events to the
// daemon logger.
func FxLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	})
}

func provideConfig() (*config.Config, error) {
	return config.LoadOrDefault(account.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(account.LogPath(p.Account), p.Account, cfg.LogLevel)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := account.EnsureDir(p.Account); err != nil {
		return nil, err
	}
	logger.Info("acquiring account lock")
	l, err := lock.Acquire(account.Dir(p.Account))
	if err != nil {
		return nil, err
	}
	logger.Info("account lock acquired")
	return l, nil
}

// The lock parameter orders store opening after the lock is held.
func provideStore(p Params, logger *zap.Logger, _ *lock.Lock) (*store.DB, error) {
	dbPath := account.MailDBPath(p.Account)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("mail store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCounters(p Params, logger *zap.Logger, _ *lock.Lock) (*counter.BoltStore, error) {
	s, err := counter.OpenBoltStore(account.CounterDBPath(p.Account))
	if err != nil {
		return nil, err
	}
	logger.Info("counter store initialized", zap.String("path", s.Path()))
	return s, nil
}

func provideReconciler(db *store.DB, logger *zap.Logger) *counter.Reconciler {
	return counter.NewReconciler(db, logger.Named("reconciler"))
}

func provideQueue(cfg *config.Config, db *store.DB, counters *counter.BoltStore, r *counter.Reconciler, d *notify.Dispatcher, logger *zap.Logger) *jobs.Queue {
	return jobs.NewQueue(db, counters, r, d, logger.Named("jobs"), cfg.QueueSize)
}

func provideImporter(db *store.DB, d *notify.Dispatcher, logger *zap.Logger) *contacts.Importer {
	return contacts.NewImporter(db, d, logger.Named("contacts"))
}

func provideMessageImporter(db *store.DB, counters *counter.BoltStore, d *notify.Dispatcher, logger *zap.Logger) *messages.Importer {
	return messages.NewImporter(db, counters, d, logger.Named("messages"))
}

func provideCounterService(p Params, m *status.Machine, db *store.DB, counters *counter.BoltStore, r *counter.Reconciler, q *jobs.Queue, d *notify.Dispatcher, logger *zap.Logger) *api.CounterService {
	return api.NewCounterService(p.Account, m, db, counters, r, q, d, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, counters *counter.BoltStore, queue *jobs.Queue, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			queue.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
					_ = machine.Transition(status.Error)
				}
			}()

			return machine.Transition(status.Ready)
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Draining)
			srv.Stop(ctx)
			// Cancelled jobs reconcile against the stores, so they close last.
			queue.Stop()
			if err := counters.Close(); err != nil {
				logger.Warn("error closing counter store", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing mail store", zap.Error(err))
			}
			_ = machine.Transition(status.Stopped)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
