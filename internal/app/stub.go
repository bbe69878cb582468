package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"learning-app-go/internal/config"
	cataloguedomain "learning-app-go/internal/domain/catalogue"
	"learning-app-go/internal/repository/inmemory"
	"learning-app-go/internal/transport/httpserver"
	"learning-app-go/internal/transport/httpserver/handler"
	"learning-app-go/pkg/logger"
)

const stubShutdownTimeout = 5 * time.Second

// Stub is the stand-in lesson service the client syncs against.
type Stub struct {
	cfg        config.Config
	log        logger.Logger
	httpServer *http.Server
}

func NewStub(cfg config.Config, log logger.Logger) *Stub {
	log.Info("app: initializing catalogue")
	catalogue := inmemory.NewInMemoryCatalogue(inmemory.SeedLessons())
	handlers := handler.New(cataloguedomain.NewService(catalogue), log)

	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	log.Info("app: initializing router", "latency", cfg.Stub.Latency, "metrics", cfg.MetricsEnabled)
	router := httpserver.NewRouter(cfg, handlers, registry)

	return &Stub{
		cfg:        cfg,
		log:        log,
		httpServer: httpserver.New(cfg, router),
	}
}

func (s *Stub) Addr() string {
	return s.httpServer.Addr
}

// Serve answers requests on ln until ctx is cancelled, then shuts the server
// down gracefully.
func (s *Stub) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http: listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("http: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stubShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}
