package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/batch"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/route"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/internal/weather"
)

// EngineClient is the scoring-engine surface the rescore job depends on.
type EngineClient interface {
	ComputeBatch(ctx context.Context, routes []scoring.RouteData) ([]scoring.RouteScore, error)
	Health(ctx context.Context) error
}

// RescoreJob periodically rescores every saved route option against
// fresh environmental data.
type RescoreJob struct {
	config RescoreConfig
	logger zerolog.Logger

	routes      route.Repository
	breakpoints route.BreakpointRepository
	weather     scoring.WeatherFetcher
	airquality  scoring.AirQualityFetcher
	engine      EngineClient

	// running guards against overlapping runs when one cycle outlasts
	// the tick interval.
	running atomic.Bool

	metrics *RescoreMetrics
}

// RescoreMetrics tracks rescore job statistics.
type RescoreMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns       int64
	SkippedRuns     int64
	OptionsRescored int64
	OptionsFailed   int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// Snapshot returns a copy of the current metrics.
func (m *RescoreMetrics) Snapshot() RescoreMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return RescoreMetrics{
		TotalRuns:       m.TotalRuns,
		SkippedRuns:     m.SkippedRuns,
		OptionsRescored: m.OptionsRescored,
		OptionsFailed:   m.OptionsFailed,
		LastRunAt:       m.LastRunAt,
		LastRunDuration: m.LastRunDuration,
		TotalDuration:   m.TotalDuration,
	}
}

// RescoreJobConfig holds configuration for creating a RescoreJob.
type RescoreJobConfig struct {
	Config            RescoreConfig
	Logger            zerolog.Logger
	Routes            route.Repository
	Breakpoints       route.BreakpointRepository
	WeatherFetcher    scoring.WeatherFetcher
	AirQualityFetcher scoring.AirQualityFetcher
	Engine            EngineClient
}

// NewRescoreJob creates a new rescore job.
func NewRescoreJob(cfg RescoreJobConfig) *RescoreJob {
	config := cfg.Config
	if config.Interval <= 0 {
		config = DefaultRescoreConfig()
	}

	return &RescoreJob{
		config:      config,
		logger:      cfg.Logger.With().Str("component", "rescore").Logger(),
		routes:      cfg.Routes,
		breakpoints: cfg.Breakpoints,
		weather:     cfg.WeatherFetcher,
		airquality:  cfg.AirQualityFetcher,
		engine:      cfg.Engine,
		metrics:     &RescoreMetrics{},
	}
}

// Metrics returns the job's metrics.
func (j *RescoreJob) Metrics() *RescoreMetrics {
	return j.metrics
}

// RescoreResult contains the outcome of one rescore run.
type RescoreResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalOptions int
	Successful   int
	Failed       int
	Skipped      bool
	Errors       []RescoreError
}

// RescoreError records a failed option rescore.
type RescoreError struct {
	RouteID     string
	OptionIndex int
	Error       string
}

// Start runs the job on its configured interval until the context is
// cancelled.
func (j *RescoreJob) Start(ctx context.Context) {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Bool("run_at_startup", j.config.RunAtStartup).
		Msg("starting rescore job")

	if j.config.RunAtStartup {
		j.RunOnce(ctx)
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("rescore job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// rescoreTask identifies one route option to rescore.
type rescoreTask struct {
	routeID      string
	optionIndex  int
	distance     float64
	duration     float64
	travelMode   breakpoint.TravelMode
	trafficValue float64
	prevScore    *float64
}

// RunOnce executes a single rescore cycle. A cycle already in flight
// causes the call to return immediately with Skipped set.
func (j *RescoreJob) RunOnce(ctx context.Context) *RescoreResult {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn().Msg("rescore run already in progress, skipping")
		j.metrics.mu.Lock()
		j.metrics.SkippedRuns++
		j.metrics.mu.Unlock()
		return &RescoreResult{Skipped: true}
	}
	defer j.running.Store(false)

	startTime := time.Now()
	result := &RescoreResult{StartTime: startTime}

	saved, err := j.routes.ListAll(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to list saved routes")
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		return result
	}

	var pending []rescoreTask
	for _, r := range saved {
		for _, option := range r.Options {
			pending = append(pending, rescoreTask{
				routeID:      r.ID,
				optionIndex:  option.OptionIndex,
				distance:     option.Distance,
				duration:     option.Duration,
				travelMode:   r.TravelMode,
				trafficValue: option.TrafficValue,
				prevScore:    option.LastComputedScore,
			})
		}
	}
	result.TotalOptions = len(pending)

	j.logger.Info().
		Int("routes", len(saved)).
		Int("options", len(pending)).
		Msg("starting rescore run")

	tasks := make([]batch.Task[float64], 0, len(pending))
	for _, task := range pending {
		task := task
		tasks = append(tasks, func(ctx context.Context) (float64, error) {
			return j.rescoreOption(ctx, task)
		})
	}

	for i, r := range batch.Run(ctx, j.config.BatchSize, j.config.BatchPause, tasks) {
		if r.Err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RescoreError{
				RouteID:     pending[i].routeID,
				OptionIndex: pending[i].optionIndex,
				Error:       r.Err.Error(),
			})
			continue
		}
		result.Successful++
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("rescore run completed")

	return result
}

// rescoreOption rescores a single route option and persists the result.
func (j *RescoreJob) rescoreOption(ctx context.Context, task rescoreTask) (float64, error) {
	taskCtx, cancel := context.WithTimeout(ctx, j.config.TaskTimeout)
	defer cancel()

	points, err := j.breakpoints.ListByOption(taskCtx, task.routeID, task.optionIndex)
	if err != nil {
		return 0, fmt.Errorf("loading breakpoints: %w", err)
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("no breakpoints persisted for option %d", task.optionIndex)
	}

	// Rebuild the extraction shape the fetchers consume, slots 1..n.
	rb := breakpoint.RouteBreakpoints{
		RouteIndex: 0,
		Points:     make(map[int]breakpoint.Coordinate, len(points)),
	}
	for i, p := range points {
		rb.Points[i+1] = breakpoint.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	batchInput := []breakpoint.RouteBreakpoints{rb}

	var (
		wg         sync.WaitGroup
		weatherRes []weather.RouteResult
		weatherErr error
		aqiRes     []airquality.RouteResult
		aqiErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		weatherRes, weatherErr = j.weather.FetchAll(taskCtx, batchInput)
	}()
	go func() {
		defer wg.Done()
		aqiRes, aqiErr = j.airquality.FetchAll(taskCtx, batchInput)
	}()
	wg.Wait()
	if weatherErr != nil {
		return 0, fmt.Errorf("fetching weather: %w", weatherErr)
	}
	if aqiErr != nil {
		return 0, fmt.Errorf("fetching air quality: %w", aqiErr)
	}

	data := scoring.RouteData{
		RouteID:       task.routeID,
		RouteIndex:    task.optionIndex,
		Distance:      task.distance,
		Duration:      task.duration,
		TravelMode:    task.travelMode,
		Breakpoints:   len(points),
		WeatherPoints: pointMains(weatherRes),
		AQIPoints:     pointReadings(aqiRes),
		TrafficValue:  task.trafficValue,
		PreviousScore: task.prevScore,
	}

	scores, err := j.engine.ComputeBatch(taskCtx, []scoring.RouteData{data})
	if err != nil {
		return 0, fmt.Errorf("computing score: %w", err)
	}
	if len(scores) != 1 {
		return 0, fmt.Errorf("engine returned %d scores for 1 route", len(scores))
	}

	score := scores[0].OverallScore
	if err := j.routes.UpdateOptionScore(ctx, task.routeID, task.optionIndex, score, time.Now()); err != nil {
		return 0, fmt.Errorf("persisting score: %w", err)
	}
	return score, nil
}

func (j *RescoreJob) updateMetrics(result *RescoreResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.OptionsRescored += int64(result.Successful)
	j.metrics.OptionsFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.StartTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

func pointMains(results []weather.RouteResult) []*weather.Main {
	if len(results) == 0 {
		return nil
	}
	mains := make([]*weather.Main, 0, len(results[0].Points))
	for _, p := range results[0].Points {
		mains = append(mains, p.Main)
	}
	return mains
}

func pointReadings(results []airquality.RouteResult) []*airquality.Reading {
	if len(results) == 0 {
		return nil
	}
	readings := make([]*airquality.Reading, 0, len(results[0].Points))
	for _, p := range results[0].Points {
		readings = append(readings, p.Reading)
	}
	return readings
}
