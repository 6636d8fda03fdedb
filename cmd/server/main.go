package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wuauser/internal/api"
	"wuauser/internal/cache"
	"wuauser/internal/config"
	"wuauser/internal/metrics"
	"wuauser/internal/service"
	"wuauser/internal/slots"
	"wuauser/internal/store"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("WUAUSER_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer st.Close()

	engine := slots.Default()
	if len(cfg.Clinic.SlotTimes) > 0 {
		closing := cfg.Clinic.ClosingTime
		if closing == "" {
			closing = slots.DefaultClosingTime
		}
		engine, err = slots.New(cfg.Clinic.SlotTimes, closing)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid clinic slot configuration")
		}
	}

	var rdb *redis.Client
	var availCache *cache.AvailabilityCache
	if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		availCache = cache.New(rdb, cfg.CacheTTL())
	}

	rules := service.Rules{
		MinAdvance: cfg.BookingMinAdvance(),
		MaxAdvance: cfg.BookingMaxAdvance(),
	}
	sched := service.NewScheduler(st, engine, availCache, rules, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, st, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, st, cfg, &logger)
	}

	srv := api.NewHTTPServer(cfg.Server.Port, sched, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, &logger)
	logger.Info().Msg("scheduling service started")
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

func startBackupLoop(ctx context.Context, st *store.Store, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}

	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour

	// Run first backup after a short delay
	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(st, cfg, retention, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(st, cfg, retention, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(st *store.Store, cfg *config.Config, retention time.Duration, logger *zerolog.Logger) {
	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(cfg.Backup.Path, fmt.Sprintf("wuauser_%s.db", timestamp))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := st.Backup(cfg.Database.Path, dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := st.CleanupBackups(cfg.Backup.Path, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, st *store.Store, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := st.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
