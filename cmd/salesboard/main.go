package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"salesboard/internal/backend"
	"salesboard/internal/cache"
	"salesboard/internal/cli"
	apphttp "salesboard/internal/http"
	"salesboard/internal/log"
	"salesboard/internal/metrics"
	"salesboard/internal/middleware/ratelimit"
	"salesboard/internal/services"
	"salesboard/internal/session"
)

// sessionSweeper keeps the session gauge in step with janitor sweeps.
type sessionSweeper struct {
	store   *session.Store
	metrics *metrics.DashboardMetrics
}

func (s sessionSweeper) CleanExpired() int {
	n := s.store.CleanExpired()
	s.metrics.SetSessions(s.store.Size())
	return n
}

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	data, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldSource, cfg.DataSource)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewDashboardMetrics(reg)

	loads := services.NewLoadService(data.History, data.Publisher, m, logger)
	defer func() {
		if err := loads.Close(); err != nil {
			logger.Error("Failed to close load service", log.FieldError, err)
		}
	}()

	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL)
	janitor := cache.NewJanitor(logger, sessionSweeper{store: sessions, metrics: m})

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
		TrustedProxies: cfg.TrustedProxies,
		SecureCookies:  cfg.SecureCookies,
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.UploadsPerMinute},
	}, apphttp.Deps{
		Defaults: data.Defaults,
		Sessions: sessions,
		Loads:    loads,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting salesboard server", "port", cfg.Port, log.FieldSource, cfg.DataSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx, cfg.SessionCleanup)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
