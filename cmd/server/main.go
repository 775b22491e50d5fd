package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timegrid/internal/api"
	"timegrid/internal/cache"
	"timegrid/internal/config"
	"timegrid/internal/database"
	"timegrid/internal/events"
	"timegrid/internal/metrics"
	"timegrid/internal/notify"
	"timegrid/internal/repository"
	"timegrid/internal/schedule"
	"timegrid/internal/slots"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("TIMEGRID_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	siteTZ, err := cfg.SiteLocation()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid site timezone")
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	repo := repository.New(db)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	scheduleCache := cache.New(rdb, cfg.CacheTTL())

	settings := slots.Settings{SlotMinutes: cfg.Scheduling.SlotMinutes}
	aggregator := schedule.NewAggregator(repo, repo, repo, repo, settings, siteTZ, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial load + hot reload of the directory (locations, employees,
	// services, business hours)
	if err := config.WatchDirectory(ctx, cfg.DirectoryConfigPath, 30*time.Second, func(dir *config.DirectoryConfig) {
		if dir == nil {
			return
		}
		if err := repo.SyncDirectory(ctx, dir); err != nil {
			logger.Error().Err(err).Msg("failed to apply directory config")
			return
		}
		logger.Info().Str("summary", dir.String()).Msg("directory config applied")
	}); err != nil {
		logger.Error().Err(err).Msg("directory watch failed")
	}

	bus := events.NewBus()
	registerCacheInvalidation(ctx, bus, repo, scheduleCache, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	if cfg.Reminders.Enabled {
		reminders := notify.NewService(
			notify.Config{
				CheckInterval: cfg.ReminderCheckInterval(),
				Lead:          cfg.ReminderLead(),
				RatePerSecond: cfg.Reminders.RatePerSecond,
				Burst:         cfg.Reminders.Burst,
			},
			repo,
			notify.NewLogNotifier(&logger),
			notify.NewMetrics("timegrid"),
			&logger,
		)
		go reminders.Start(ctx)
	}

	server := api.NewHTTPServer(cfg.Server.Port, repo, aggregator, scheduleCache, bus, siteTZ, cfg.Server.APIKey, &logger)

	logger.Info().Msg("timegrid started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

// registerCacheInvalidation drops cached schedules for the day an
// appointment was created or canceled on, for every location its employee
// serves.
func registerCacheInvalidation(ctx context.Context, bus *events.Bus, repo *repository.Repo, scheduleCache *cache.ScheduleCache, logger *zerolog.Logger) {
	if !scheduleCache.Enabled() {
		return
	}

	handler := func(event events.Event) error {
		var payload struct {
			AppointmentID int64 `json:"appointment_id"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}

		appt, err := repo.GetAppointment(ctx, payload.AppointmentID)
		if err != nil || appt.EmployeeID == nil {
			return err
		}

		employees, err := repo.ListEmployees(ctx)
		if err != nil {
			return err
		}
		for _, e := range employees {
			if e.ID != *appt.EmployeeID {
				continue
			}
			for _, locationID := range e.LocationIDs {
				scheduleCache.Invalidate(ctx, locationID, appt.Start)
			}
		}
		logger.Debug().Int64("appointment_id", payload.AppointmentID).Msg("schedule cache invalidated")
		return nil
	}

	bus.Subscribe(events.AppointmentCreated, handler)
	bus.Subscribe(events.AppointmentCanceled, handler)
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
		missing, err := db.CheckSchema(ctxPing)
		if err != nil || len(missing) > 0 {
			http.Error(w, "schema not healthy", http.StatusServiceUnavailable)
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
