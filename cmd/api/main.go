// Package main provides the entrypoint for the BreathClean API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/airquality/waqi"
	"github.com/breathclean/breathclean/internal/api"
	"github.com/breathclean/breathclean/internal/api/handler"
	"github.com/breathclean/breathclean/internal/api/middleware"
	"github.com/breathclean/breathclean/internal/auth"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/cache"
	"github.com/breathclean/breathclean/internal/database"
	"github.com/breathclean/breathclean/internal/provider/resilience"
	"github.com/breathclean/breathclean/internal/route"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/internal/telemetry"
	"github.com/breathclean/breathclean/internal/weather"
	"github.com/breathclean/breathclean/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "breathclean-api"

	// Local development convenience; the file is absent in deployed images.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting BreathClean API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
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

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
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

	// Result and breakpoint caches live in Redis; fall back to an
	// in-process store when Redis is unreachable so compute still works.
	subsystems := map[string]handler.Pinger{
		"cloud-sql": handler.PingerFunc(pool.Ping),
	}
	var store cache.Store
	redisStore, err := cache.NewRedisStore(ctx, cache.RedisConfigFromEnv())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		store = cache.NewMemoryStore()
	} else {
		defer redisStore.Close()
		store = redisStore
		subsystems["redis"] = handler.PingerFunc(redisStore.Ping)
		log.Info().Msg("redis cache connected")
	}

	// Initialize token verifier
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		SigningKey: signingKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	// Initialize provider clients
	owmClient, err := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:  os.Getenv("OPENWEATHERMAP_API_KEY"),
		BaseURL: os.Getenv("OPENWEATHERMAP_BASE_URL"),
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OpenWeatherMap client")
	}

	waqiClient, err := waqi.NewClient(waqi.ClientConfig{
		Token:   os.Getenv("WAQI_TOKEN"),
		BaseURL: os.Getenv("WAQI_BASE_URL"),
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize WAQI client")
	}

	// Initialize scoring pipeline
	extractor := breakpoint.NewExtractor(log)
	weatherFetcher := weather.NewFetcher(weather.FetcherConfig{Provider: owmClient, Logger: log})
	aqiFetcher := airquality.NewFetcher(airquality.FetcherConfig{Provider: waqiClient, Logger: log})
	scoreService := scoring.NewService(extractor, weatherFetcher, aqiFetcher, store, log)
	if pipelineMetrics, err := telemetry.NewPipelineMetrics(); err != nil {
		log.Warn().Err(err).Msg("pipeline metrics unavailable")
	} else {
		scoreService.SetMetrics(pipelineMetrics)
	}
	log.Info().Msg("scoring service initialized")

	// Initialize saved-route repositories and service
	routeRepo := route.NewPostgresRepository(pool)
	bpRepo := route.NewPostgresBreakpointRepository(pool)
	routeService := route.NewService(routeRepo, bpRepo, scoreService, extractor, log)
	log.Info().Msg("route service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       metrics,
		TokenVerifier: verifier,
		ScoreService:  scoreService,
		RouteService:  routeService,
		Subsystems:    subsystems,
		Providers: map[string]handler.Pinger{
			openweathermap.ProviderName: providerPinger(openweathermap.ProviderName),
			waqi.ProviderName:           providerPinger(waqi.ProviderName),
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// providerPinger reports a provider as down when its circuit breaker has
// opened. A provider with no traffic yet reports healthy.
func providerPinger(name string) handler.Pinger {
	return handler.PingerFunc(func(context.Context) error {
		health := resilience.GlobalRegistry.GetHealth(name)
		if health == nil || !health.IsUnhealthy() {
			return nil
		}
		if health.LastError != "" {
			return errors.New(health.LastError)
		}
		return fmt.Errorf("circuit breaker %s", health.CircuitState)
	})
}
