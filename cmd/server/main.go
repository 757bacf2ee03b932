package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"dockbook/internal/api"
	"dockbook/internal/cache"
	"dockbook/internal/config"
	"dockbook/internal/database"
	"dockbook/internal/events"
	"dockbook/internal/metrics"
	"dockbook/internal/service"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("DOCKBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, name := range cfg.Branches {
		if _, err := db.EnsureBranch(ctx, name); err != nil {
			logger.Fatal().Err(err).Str("branch", name).Msg("seed branch error")
		}
	}

	var rdb *redis.Client
	var templateStore service.TemplateStore = db
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		templateStore = cache.New(db, rdb, cfg.RedisCacheTTL(), &logger)
		logger.Info().Str("address", cfg.Redis.Address).Msg("template cache enabled")
	}

	bus := events.NewBus()
	subscribeAudit(ctx, bus, db, &logger)

	detector := service.NewConflictDetector(db)
	availability := service.NewAvailabilityService(templateStore, db, db, &logger)
	rules := service.BookingRules{
		MinAdvance: cfg.BookingMinAdvance(),
		MaxAdvance: cfg.BookingMaxAdvance(),
	}
	reservations := service.NewReservationService(db, db, detector, bus, rules, &logger)
	templates := service.NewTemplateService(templateStore, db, reservations, bus, &logger)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(cfg.Server.Port, availability, templates, reservations, db,
		cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst, &logger)

	logger.Info().Msg("dockbook started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

// subscribeAudit records every lifecycle event as an audit row.
func subscribeAudit(ctx context.Context, bus *events.Bus, db *database.DB, logger *zerolog.Logger) {
	record := func(entity string, entityID int64, action string) {
		err := db.RecordAudit(ctx, database.AuditEntry{
			Entity:   entity,
			EntityID: entityID,
			Action:   action,
		})
		if err != nil {
			logger.Error().Err(err).Str("action", action).Msg("audit record failed")
		}
	}

	for _, eventType := range []string{
		events.ReservationCreated, events.ReservationConfirmed, events.ReservationCompleted,
		events.ReservationCancelled, events.ReservationRescheduling,
	} {
		action := eventType
		bus.Subscribe(eventType, func(e events.Event) {
			record("reservation", e.ReservationID, action)
		})
	}
	for _, eventType := range []string{events.TemplateCreated, events.TemplateUpdated, events.TemplateDeleted} {
		action := eventType
		bus.Subscribe(eventType, func(e events.Event) {
			record("template", e.TemplateID, action)
		})
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
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

	runServer(ctx, mux, port, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	runServer(ctx, mux, port, "metrics", logger)
}

func runServer(ctx context.Context, handler http.Handler, port int, name string, logger *zerolog.Logger) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	logger.Info().Int("port", port).Msgf("%s server started", name)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}
