// Package main is the entry point for the B&B reservation server.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api"
	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/booking"
	"github.com/bnb-reservations/backend/internal/calendar"
	"github.com/bnb-reservations/backend/internal/config"
	"github.com/bnb-reservations/backend/internal/guestbook"
	"github.com/bnb-reservations/backend/internal/logging"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.Addr, "HTTP server address")
	dataDir := flag.String("data", cfg.DataDir, "Data directory for SQLite database")
	staticDir := flag.String("static", cfg.StaticDir, "Directory for static frontend files")
	envFile := flag.String("env", "", "Optional .env file to load")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	if *envFile != "" {
		cfg = config.Load(*envFile)
	}
	cfg.Addr, cfg.DataDir, cfg.StaticDir = *addr, *dataDir, *staticDir

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			logger.WithError(err).Fatal("health check failed")
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	logger.WithField("version", version).Info("starting B&B reservation server")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %q: %w", cfg.DataDir, err)
	}
	db, err := storage.NewDB(filepath.Join(cfg.DataDir, "bnb.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenIssuer(secret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	policy, err := auth.NewPolicy()
	if err != nil {
		return fmt.Errorf("loading access policy: %w", err)
	}

	// Repositories
	users := storage.NewUserRepository(db)
	rooms := storage.NewRoomRepository(db)
	bookings := storage.NewBookingRepository(db)
	unavailable := storage.NewUnavailableRepository(db)
	calendars := storage.NewCalendarRepository(db)
	entries := storage.NewGuestEntryRepository(db)
	settings := storage.NewSettingsRepository(db)

	authService := auth.NewService(users, tokens, logger)
	if cfg.HasHostAccount() {
		if err := authService.EnsureHost(context.Background(), cfg.HostName, cfg.HostMail, cfg.HostPassword); err != nil {
			return fmt.Errorf("ensuring host account: %w", err)
		}
	} else {
		logger.Warn("HOST_MAIL/HOST_PASSWORD not set; no host account available")
	}

	hub := websocket.NewHub(logger)
	go hub.Run()
	events := websocket.NewEventBroadcaster(hub)

	bookingService := booking.NewService(db, bookings, unavailable, events, logger)
	guestbookService := guestbook.NewService(entries, bookings, logger)

	syncService := calendar.NewSyncService(db, calendars, unavailable, calendar.NewParser(cfg.FeedTimeout, logger), logger)
	scheduler := calendar.NewScheduler(syncService, calendars, events, defaultInterval(settings, cfg), logger)
	if err := scheduler.Start(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to start calendar scheduler")
	}

	router := api.NewRouter(api.Deps{
		DB:          db,
		Hub:         hub,
		Events:      events,
		Logger:      logger,
		Auth:        authService,
		Policy:      policy,
		Bookings:    bookingService,
		Guestbook:   guestbookService,
		Rooms:       rooms,
		Unavailable: unavailable,
		Calendars:   calendars,
		Settings:    settings,
		Exporter:    calendar.NewExporter(rooms, bookings, unavailable),
		Scheduler:   scheduler,
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticDir,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Addr).Info("server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		scheduler.Stop()
		hub.Stop()
		return fmt.Errorf("serving http: %w", err)
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down server")
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	hub.Stop()

	logger.Info("server stopped")
	return nil
}

// defaultInterval prefers the stored setting over the environment.
func defaultInterval(settings *storage.SettingsRepository, cfg config.Config) int {
	s, err := settings.Get(context.Background())
	if err != nil {
		return cfg.DefaultSyncIntervalMin
	}
	n, err := strconv.Atoi(s.DefaultSyncIntervalMin)
	if err != nil || n <= 0 {
		return cfg.DefaultSyncIntervalMin
	}
	return n
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
