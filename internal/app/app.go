package app

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"learning-app-go/internal/config"
	"learning-app-go/internal/connectivity"
	"learning-app-go/internal/db"
	syncdomain "learning-app-go/internal/domain/sync"
	"learning-app-go/internal/remote"
	"learning-app-go/internal/repository/local"
	"learning-app-go/pkg/logger"
)

// App is the on-device side: local store, remote client and the sync
// coordinator that ties them together.
type App struct {
	cfg         config.Config
	log         logger.Logger
	db          *gorm.DB
	registry    *prometheus.Registry
	coordinator *syncdomain.Coordinator
	probe       *connectivity.Probe
	static      *connectivity.Static
}

// New loads configuration and switches to the logger it describes.
func New(bootLog logger.Logger) (*App, error) {
	bootLog.Debug("app: loading config")
	cfg, err := config.Load(bootLog)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, logger.NewFromConfig(cfg.Log, os.Stderr))
}

func NewWithConfig(cfg config.Config, log logger.Logger) (*App, error) {
	log.Debug("app: initializing local store", "driver", cfg.LocalStore.Driver)
	dbConn, err := db.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	store := local.NewGorm(dbConn)

	log.Debug("app: initializing remote client", "base_url", cfg.Remote.BaseURL)
	client := remote.New(cfg.Remote, log)

	a := &App{
		cfg: cfg,
		log: log,
		db:  dbConn,
	}

	var conn syncdomain.Connectivity
	switch cfg.Connectivity.Mode {
	case config.ConnectivityOnline:
		a.static = connectivity.NewStatic(true)
		conn = a.static
	case config.ConnectivityOffline:
		a.static = connectivity.NewStatic(false)
		conn = a.static
	case config.ConnectivityProbe:
		a.probe = connectivity.NewProbe(client, cfg.Connectivity.ProbeInterval, log)
		conn = a.probe
	default:
		_ = db.Close(dbConn)
		return nil, fmt.Errorf("unsupported connectivity mode %q", cfg.Connectivity.Mode)
	}

	opts := []syncdomain.Option{
		syncdomain.WithLogger(logger.Component(log, "sync")),
		syncdomain.WithRemoteTimeout(cfg.Remote.Timeout),
		syncdomain.WithFlushPolicy(cfg.Outbox.BatchSize, uint(cfg.Outbox.MaxAttempts), cfg.Outbox.FlushInterval),
	}
	if cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector())
		opts = append(opts, syncdomain.WithMetrics(syncdomain.NewMetrics(a.registry)))
	}

	a.coordinator = syncdomain.NewCoordinator(store, store, client, conn, opts...)
	return a, nil
}

func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) Coordinator() *syncdomain.Coordinator {
	return a.coordinator
}

// Registry is nil when metrics are disabled.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// SetOnline overrides connectivity when running in a fixed mode.
func (a *App) SetOnline(online bool) bool {
	if a.static == nil {
		return false
	}
	a.static.Set(online)
	return true
}

// Run keeps the coordinator's background flush loop and the connectivity
// probe going until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.probe != nil {
		g.Go(func() error {
			return a.probe.Run(gctx)
		})
	}
	g.Go(func() error {
		return a.coordinator.Run(gctx)
	})
	return g.Wait()
}

func (a *App) Close() error {
	return db.Close(a.db)
}
