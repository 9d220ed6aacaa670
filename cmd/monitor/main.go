// Package main provides the entrypoint for the FleetPulse route monitor.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/database"
	"github.com/fleetpulse/fleetpulse/internal/monitor"
	"github.com/fleetpulse/fleetpulse/internal/notify"
	"github.com/fleetpulse/fleetpulse/internal/ops"
	"github.com/fleetpulse/fleetpulse/internal/optimizer"
	"github.com/fleetpulse/fleetpulse/internal/route"
	"github.com/fleetpulse/fleetpulse/internal/snapshot"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
	"github.com/fleetpulse/fleetpulse/internal/traffic"
	"github.com/fleetpulse/fleetpulse/internal/traffic/tomtom"
	"github.com/fleetpulse/fleetpulse/internal/weather/openmeteo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fleetpulse-monitor"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FleetPulse monitor")

	// Get configuration from environment
	port := getEnvOrDefault("APP_PORT", "8080")
	env := getEnvOrDefault("APP_ENV", "development")
	otlpEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	sampleRatio, _ := strconv.ParseFloat(os.Getenv("OTEL_TRACE_SAMPLE_RATIO"), 64)

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		SampleRatio:    sampleRatio,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize storage
	var (
		routeRepo route.Repository
		snapRepo  snapshot.Repository
	)
	if getEnvOrDefault("STORAGE_DRIVER", "postgres") == "memory" {
		log.Warn().Msg("using in-memory storage - data is lost on restart")
		routeRepo = route.NewInMemoryRepository()
		snapRepo = snapshot.NewInMemoryRepository()
	} else {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		routeRepo = route.NewPostgresRepository(pool)
		snapRepo = snapshot.NewPostgresRepository(pool)
	}

	// Initialize condition providers
	tomtomKey := os.Getenv("TOMTOM_API_KEY")
	if tomtomKey == "" {
		log.Warn().Msg("TOMTOM_API_KEY not set - traffic requests will be rejected")
	}
	trafficService := traffic.NewService(traffic.ServiceConfig{
		Provider: tomtom.NewClient(tomtom.ClientConfig{
			APIKey: tomtomKey,
			Logger: log,
		}),
		Logger: log,
	})
	weatherClient := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL: os.Getenv("OPENMETEO_BASE_URL"),
		Logger:  log,
	})
	log.Info().Msg("condition providers initialized")

	// Initialize the route optimizer. The AI planner is used only when an
	// API key is configured; otherwise every request takes the fallback.
	var primary optimizer.Planner
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		primary = optimizer.NewAnthropicPlanner(optimizer.AnthropicConfig{
			Model:  os.Getenv("PLANNER_MODEL"),
			Logger: log,
		})
		log.Info().Msg("AI planner initialized")
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY not set - using deterministic planner only")
	}
	optimizerService := optimizer.NewService(optimizer.ServiceConfig{
		Primary: primary,
		Logger:  log,
	})

	// Initialize the notifier: Pub/Sub when configured, log sink otherwise.
	var notifier notify.Notifier
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		psNotifier, err := notify.NewPubSubNotifier(ctx, notify.PubSubConfig{
			ProjectID: projectID,
			TopicName: getEnvOrDefault("PUBSUB_ALERT_TOPIC", "route-alerts"),
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize pubsub notifier")
		}
		defer func() {
			if err := psNotifier.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub notifier")
			}
		}()
		notifier = psNotifier
		log.Info().Str("project", projectID).Msg("pubsub notifier initialized")
	} else {
		notifier = notify.NewLogNotifier(log)
		log.Info().Msg("log notifier initialized")
	}

	// Initialize scanner and re-optimizer
	scanner := monitor.NewScanner(monitor.ScannerConfig{
		Config:    scanConfigFromEnv(),
		Routes:    routeRepo,
		Snapshots: snapRepo,
		Traffic:   trafficService,
		Weather:   weatherClient,
		Notifier:  notifier,
		Logger:    log,
	})
	reoptimizer := monitor.NewReoptimizer(monitor.ReoptimizerConfig{
		Routes:    routeRepo,
		Snapshots: snapRepo,
		Optimizer: optimizerService,
		Logger:    log,
	})

	// Start the scan loop
	scanCtx, cancelScans := context.WithCancel(ctx)
	defer cancelScans()
	go scanner.Start(scanCtx)

	// Create the ops HTTP server
	router := ops.NewRouter(ops.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Scanner:     scanner,
		Reoptimizer: reoptimizer,
		Logger:      log,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("ops server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancelScans()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("monitor stopped")
}

// scanConfigFromEnv builds the scan configuration from environment variables,
// falling back to defaults for anything unset or unparsable.
func scanConfigFromEnv() monitor.ScanConfig {
	cfg := monitor.DefaultScanConfig()

	if v, err := time.ParseDuration(os.Getenv("SCAN_INTERVAL")); err == nil && v > 0 {
		cfg.Interval = v
	}
	if v, err := strconv.Atoi(os.Getenv("SCAN_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if v, err := time.ParseDuration(os.Getenv("SCAN_ROUTE_TIMEOUT")); err == nil && v > 0 {
		cfg.RouteTimeout = v
	}
	if v, err := time.ParseDuration(os.Getenv("SNAPSHOT_RETENTION")); err == nil && v > 0 {
		cfg.Retention = v
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
