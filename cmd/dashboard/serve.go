package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockdash/config"
	"stockdash/internal/dashboard"
	"stockdash/internal/gateway"
	"stockdash/internal/logger"
	"stockdash/internal/metrics"
	"stockdash/internal/store/redis"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.Init("dashboard", cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cfg, log)
		},
	}
}

func serve(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus(cfg.Source.Kind)

	src, err := openSource(cfg, log, m, health)
	if err != nil {
		return err
	}
	defer src.close()

	if src.archive != nil {
		missing, err := missingFromArchive(ctx, src.archive, cfg.Symbols)
		switch {
		case err != nil:
			log.Warn("archive check failed", zap.Error(err))
		case len(missing) > 0:
			log.Warn("archive has no bars for some symbols; run `dashboard archive`",
				zap.Strings("symbols", missing))
		}
	}

	svc, err := dashboard.NewService(src, dashboard.Config{
		Symbols:      cfg.Symbols,
		LookbackDays: cfg.LookbackDays,
		Settings:     dashboard.Settings{DefaultSymbol: cfg.DefaultSymbol, Params: cfg.Indicators},
	}, dashboard.WithLogger(log), dashboard.WithMetrics(m))
	if err != nil {
		return err
	}

	// Settings persistence is optional; without Redis they live in memory.
	var (
		store *redis.SettingsStore
		rdb   *goredis.Client
	)
	if cfg.Redis.Addr != "" {
		hostname, _ := os.Hostname()
		origin := logger.GenerateTraceID(hostname, time.Now())
		store, err = redis.New(redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password}, origin, log)
		if err != nil {
			log.Warn("redis unavailable, settings stay in memory", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
			rdb = store.Client()
		}
	}

	var persister gateway.SettingsPersister
	if store != nil {
		persister = store
	}
	hub := gateway.NewHub(svc, persister, m, log)
	if store != nil {
		hub.ConfigStore.Load(ctx)
		go store.WatchSettings(ctx, hub.ConfigStore.Apply)
	}

	health.StartLivenessChecker(ctx, rdb, src.db, 15*time.Second)
	go hub.StartMarketBroadcast(ctx, time.Minute)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           gateway.NewRouter(hub, health, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("source", src.Name()),
			zap.Int("symbols", len(cfg.Symbols)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Shutdown(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
