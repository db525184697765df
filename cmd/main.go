package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mihrab-labs/salahstreak/internal/adapters/http/api"
	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	app "github.com/mihrab-labs/salahstreak/internal/app"
	"github.com/mihrab-labs/salahstreak/internal/config"
	"github.com/mihrab-labs/salahstreak/internal/scheduler"
	"github.com/mihrab-labs/salahstreak/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection; the service registry carries
	// only its own metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	loc, err := cfg.Location()
	if err != nil {
		os.Stderr.WriteString("invalid timezone: " + err.Error() + "\n")
		return
	}

	// Select the backing store: Postgres when a DSN is configured,
	// otherwise in-memory for local runs.
	var store repository.Store
	if cfg.DatabaseDSN != "" {
		bunStore, err := repository.NewBunStore(ctx, cfg.DatabaseDSN, loc)
		if err != nil {
			os.Stderr.WriteString("failed to connect to database: " + err.Error() + "\n")
			return
		}
		defer bunStore.Close()
		if err := bunStore.EnsureSchema(ctx); err != nil {
			os.Stderr.WriteString("failed to ensure schema: " + err.Error() + "\n")
			return
		}
		store = bunStore
		log.Info(ctx, "using postgres store")
	} else {
		store = repository.NewMemoryStore(loc)
		log.Warn(ctx, "no database_dsn configured; using in-memory store")
	}

	svc := app.New(
		app.WithStore(store),
		app.WithLogger(log),
		app.WithLocation(loc),
		app.WithQueueSize(cfg.IngestQueueSize),
		app.WithWorkerCount(cfg.IngestWorkerCount),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithRoundPolicy(cfg.RoundDurationDays, cfg.EventsPerDay, cfg.EligibilityRatio),
		app.WithAutoCreateRounds(cfg.AutoCreateRounds),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Background sweeps: score new punches, then keep the round ledger
	// moving (complete expired rounds, open the next one when configured).
	scoreRunner := scheduler.NewRunner("score-sweep", cfg.ScoreInterval(), svc.ProcessNewScores, scheduler.WithLogger(log))
	scoreRunner.Start(ctx)
	roundRunner := scheduler.NewRunner("round-sweep", cfg.RoundInterval(), func(ctx context.Context) error {
		if err := svc.AutoCompleteExpired(ctx); err != nil {
			return err
		}
		return svc.EnsureCurrentRound(ctx)
	}, scheduler.WithLogger(log))
	roundRunner.Start(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	<-scoreRunner.Done()
	<-roundRunner.Done()

	log.Info(ctx, "server stopped")
}
