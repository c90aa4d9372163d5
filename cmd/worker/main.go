// Package main provides the entrypoint for the BreathClean rescore worker.
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
	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/airquality/waqi"
	"github.com/breathclean/breathclean/internal/database"
	"github.com/breathclean/breathclean/internal/route"
	"github.com/breathclean/breathclean/internal/scoring/engine"
	"github.com/breathclean/breathclean/internal/weather"
	"github.com/breathclean/breathclean/internal/weather/openweathermap"
	"github.com/breathclean/breathclean/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "breathclean-worker"

	// Local development convenience; the file is absent in deployed images.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting BreathClean worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

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

	engineClient, err := engine.NewClient(engine.ClientConfig{
		BaseURL: engineBaseURL(),
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scoring engine client")
	}

	// Initialize the rescore job
	rescoreJob := worker.NewRescoreJob(worker.RescoreJobConfig{
		Config:            worker.RescoreConfigFromEnv(),
		Logger:            log,
		Routes:            route.NewPostgresRepository(pool),
		Breakpoints:       route.NewPostgresBreakpointRepository(pool),
		WeatherFetcher:    weather.NewFetcher(weather.FetcherConfig{Provider: owmClient, Logger: log}),
		AirQualityFetcher: airquality.NewFetcher(airquality.FetcherConfig{Provider: waqiClient, Logger: log}),
		Engine:            engineClient,
	})

	// Periodic rescoring; a Pub/Sub subscription can additionally trigger
	// on-demand runs when configured.
	go rescoreJob.Start(ctx)

	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
		if subscription == "" {
			subscription = "rescore-jobs"
		}

		pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			RescoreJob:       rescoreJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
		}
		defer pubsubHandler.Close()

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().Msg("PUBSUB_PROJECT_ID not set, running on schedule only")
	}

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		m := rescoreJob.Metrics().Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w,
			`{"status":"healthy","version":%q,"rescore":{"totalRuns":%d,"skippedRuns":%d,"optionsRescored":%d,"optionsFailed":%d,"lastRunDurationMs":%d}}`,
			Version, m.TotalRuns, m.SkippedRuns, m.OptionsRescored, m.OptionsFailed, m.LastRunDuration.Milliseconds())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func engineBaseURL() string {
	if url := os.Getenv("SCORING_ENGINE_URL"); url != "" {
		return url
	}
	return engine.DefaultBaseURL
}
