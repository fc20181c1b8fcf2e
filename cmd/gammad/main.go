package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/saaga0h/gammad/internal/cache"
	"github.com/saaga0h/gammad/internal/daemon"
	"github.com/saaga0h/gammad/internal/fullscreen"
	"github.com/saaga0h/gammad/internal/gamma"
	"github.com/saaga0h/gammad/internal/geo"
	"github.com/saaga0h/gammad/internal/sun"
	"github.com/saaga0h/gammad/internal/weather"
	"github.com/saaga0h/gammad/pkg/config"
	"github.com/saaga0h/gammad/pkg/health"
	"github.com/saaga0h/gammad/pkg/httpclient"
	"github.com/saaga0h/gammad/pkg/mqtt"
	"github.com/saaga0h/gammad/pkg/redis"
	"github.com/saaga0h/gammad/pkg/shell"
)

const resetTimeout = 5 * time.Second

func main() {
	// Load configuration with hierarchy: defaults → file → env → flags
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger.Info("Starting gammad",
		"version", "1.0",
		"run_id", runID,
		"location", cfg.Location,
		"cache_backend", cfg.CacheBackend,
		"sun_provider", cfg.SunProvider,
		"fullscreen_detection", !cfg.DisableFullscreen,
		"weather", !cfg.DisableWeather,
		"log_level", cfg.LogLevel)

	// Missing display tooling is the one fatal condition
	runner := shell.NewExecRunner()
	if err := shell.Require(runner, "xrandr"); err != nil {
		logger.Error("Cannot adjust displays", "error", err)
		os.Exit(1)
	}

	store, closeStore := openStore(cfg, logger)
	defer closeStore()

	if cfg.ClearCache {
		if err := store.Clear(context.Background()); err != nil {
			logger.Warn("Failed to clear cache", "error", err)
		} else {
			logger.Info("Cache cleared")
		}
	}

	fetcher := httpclient.New(cfg.HTTPTimeout, cfg.RequestsPerSec)

	var provider sun.Provider = sun.NewAPIProvider(fetcher, cfg.SunAPIURL)
	if cfg.SunProvider == "local" {
		provider = sun.NewLocalProvider()
	}

	controller := gamma.NewController(gamma.NewXrandrDisplay(runner), logger)

	var mqttClient mqtt.Client
	if cfg.MQTTEnabled() {
		mqttClient = connectMQTT(cfg, logger)
		host, _ := os.Hostname()
		controller.SetNotifier(gamma.NewMQTTPublisher(mqttClient, host, runID, logger))
	}

	loop := daemon.NewLoop(
		daemon.Options{
			Location:      cfg.Location,
			ManualSunrise: cfg.ManualSunrise,
			ManualSunset:  cfg.ManualSunset,
		},
		geo.NewResolver(store, fetcher, cfg.GeocodeURL, logger),
		sun.NewResolver(store, provider, logger),
		weather.NewClassifier(store, fetcher, cfg.WeatherURL, !cfg.DisableWeather, logger),
		fullscreen.NewDetector(!cfg.DisableFullscreen, fullscreen.DefaultStrategies(runner), logger),
		controller,
		logger,
	)

	var httpServer *http.Server
	if cfg.HealthPort > 0 {
		checker := health.NewChecker(func() interface{} {
			return newStatus(loop.Snapshot(), controller.Current())
		}, logger)
		httpServer = startHealthServer(cfg.HealthPort, checker, logger)
	}

	// Set up signal handling: every termination path resets the displays
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(ctx)
	}()

	exitCode := awaitShutdown(sigChan, loopErr, cancel, controller, logger)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down health server", "error", err)
		}
		shutdownCancel()
	}

	if mqttClient != nil {
		mqttClient.Disconnect()
	}

	closeStore()
	logger.Info("gammad shutdown complete", "exit_code", exitCode)
	os.Exit(exitCode)
}

// Resetter restores the displays to neutral within a budget
type Resetter interface {
	ResetWithin(ctx context.Context, budget time.Duration) error
}

// awaitShutdown blocks until a termination signal or a loop failure, stops
// the loop and resets the displays. It returns the process exit code.
func awaitShutdown(sigChan <-chan os.Signal, loopErr <-chan error, cancel context.CancelFunc,
	resetter Resetter, logger *slog.Logger) int {
	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Info("Termination signal received", "signal", sig.String())
		if s, ok := sig.(syscall.Signal); ok {
			exitCode = 128 + int(s)
		} else {
			exitCode = 1
		}
	case err := <-loopErr:
		logger.Error("Control loop exited", "error", err)
		exitCode = 1
	}

	cancel()

	if err := resetter.ResetWithin(context.Background(), resetTimeout); err != nil {
		logger.Error("Failed to reset displays", "error", err)
	}
	return exitCode
}

// openStore returns the configured cache, falling back to memory when the
// backend is unreachable. The cache is never a reason to stop.
func openStore(cfg *config.Config, logger *slog.Logger) (cache.Store, func()) {
	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(cfg, logger)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, using in-memory cache", "error", err)
			client.Close()
			return cache.NewMemoryStore(logger), func() {}
		}
		return cache.NewRedisStore(client, logger), closeOnce(func() error { return client.Close() }, logger)

	case "bolt":
		store, err := cache.OpenBolt(cfg.CachePath(), logger)
		if err != nil {
			logger.Warn("On-disk cache unavailable, using in-memory cache", "path", cfg.CachePath(), "error", err)
			return cache.NewMemoryStore(logger), func() {}
		}
		logger.Info("Opened cache", "path", store.Path())
		return store, closeOnce(store.Close, logger)
	}

	return cache.NewMemoryStore(logger), func() {}
}

func closeOnce(fn func() error, logger *slog.Logger) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		if err := fn(); err != nil {
			logger.Error("Error closing cache", "error", err)
		}
	}
}

func connectMQTT(cfg *config.Config, logger *slog.Logger) mqtt.Client {
	client := mqtt.NewClient(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		// Auto-reconnect keeps trying in the background
		logger.Warn("MQTT broker not reachable yet", "broker", cfg.MQTTAddress(), "error", err)
	}
	return client
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           checker.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
