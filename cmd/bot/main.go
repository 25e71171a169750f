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

	"apptbot/internal/api"
	"apptbot/internal/booking"
	"apptbot/internal/bot"
	"apptbot/internal/calendar"
	"apptbot/internal/catalog"
	"apptbot/internal/config"
	"apptbot/internal/events"
	"apptbot/internal/export"
	"apptbot/internal/metrics"
	"apptbot/internal/notify"
	"apptbot/internal/remind"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("APPTBOT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.New(cfg.Services)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid service catalog")
	}

	pol, err := cfg.Policy()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid booking policy")
	}

	var store calendar.Store
	var sqliteStore *calendar.SQLiteStore
	switch cfg.Calendar.Provider {
	case "google":
		store, err = calendar.NewGoogleStore(ctx, cfg.Calendar.Google.CredentialsFile, cfg.Calendar.Google.CalendarID)
		if err != nil {
			logger.Fatal().Err(err).Msg("google calendar init error")
		}
	case "sqlite":
		sqliteStore, err = calendar.NewSQLiteStore(cfg.Calendar.SQLite.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("open calendar db error")
		}
		defer sqliteStore.Close()
		store = sqliteStore
		backup := calendar.NewBackupService(cfg.Calendar.SQLite.Path, cfg.Calendar.Backup, &logger)
		go backup.Start(ctx)
	default:
		logger.Fatal().Str("provider", cfg.Calendar.Provider).Msg("unknown calendar provider")
	}

	ledger := booking.NewLedger(store)
	bus := events.NewBus()
	svc := booking.NewOrchestrator(ledger, cat, pol, bus, &logger)
	reporter := export.NewReporter(ledger, cat)

	b, err := bot.New(cfg.Telegram.BotToken, svc, reporter, ledger, cfg.Managers, cfg.Telegram.Debug, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	if cfg.Notifications.Enabled {
		notifier := notify.NewService(b, cat, cfg.Managers,
			cfg.Notifications.RatePerSecond, cfg.Notifications.Burst, &logger)
		notifier.SubscribeTo(bus)
	}

	if cfg.Reminders.Enabled {
		reminders := remind.NewService(remind.Config{
			HoursBefore:   cfg.Reminders.HoursBefore,
			CheckInterval: time.Duration(cfg.Reminders.CheckIntervalMinutes) * time.Minute,
		}, ledger, b, cat, &logger)
		reminders.Start(ctx)
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	if cfg.HTTP.Enabled {
		if cfg.HTTP.Port == 0 {
			cfg.HTTP.Port = 8080
		}
		apiSrv := api.NewServer(svc, cat, reporter, rdb, cfg.SlotCacheTTL(), &logger)
		go startAPIServer(ctx, cfg.HTTP.Port, apiSrv.Handler(), &logger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, sqliteStore, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("provider", cfg.Calendar.Provider).Msg("booking bot started")
	b.Start(ctx)
}

func startAPIServer(ctx context.Context, port int, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msg("http api listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, store *calendar.SQLiteStore, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if store != nil {
			if err := store.PingContext(ctxPing); err != nil {
				http.Error(w, "calendar db not ready", http.StatusServiceUnavailable)
				return
			}
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
