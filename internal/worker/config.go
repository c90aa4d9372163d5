// Package worker provides background rescoring of saved routes.
package worker

import (
	"os"
	"time"

	"github.com/breathclean/breathclean/internal/batch"
)

// RescoreConfig holds configuration for the periodic rescore job.
type RescoreConfig struct {
	// Interval is the time between rescore runs.
	// Default: 20 minutes
	Interval time.Duration

	// RunAtStartup triggers a rescore run immediately when the job
	// starts, before the first tick.
	RunAtStartup bool

	// BatchSize is the number of route options rescored concurrently.
	// Default: batch.DefaultSize
	BatchSize int

	// BatchPause is the pause between rescore waves.
	// Default: 500 milliseconds
	BatchPause time.Duration

	// TaskTimeout is the timeout for rescoring a single route option,
	// covering its environmental fetches and the engine call.
	// Default: 90 seconds
	TaskTimeout time.Duration
}

// DefaultRescoreConfig returns the default rescore configuration.
func DefaultRescoreConfig() RescoreConfig {
	return RescoreConfig{
		Interval:     20 * time.Minute,
		RunAtStartup: true,
		BatchSize:    batch.DefaultSize,
		BatchPause:   500 * time.Millisecond,
		TaskTimeout:  90 * time.Second,
	}
}

// RescoreConfigFromEnv loads the rescore configuration from environment
// variables, falling back to defaults for anything unset.
func RescoreConfigFromEnv() RescoreConfig {
	cfg := DefaultRescoreConfig()

	if v, err := time.ParseDuration(os.Getenv("RESCORE_INTERVAL")); err == nil && v > 0 {
		cfg.Interval = v
	}
	if v, err := time.ParseDuration(os.Getenv("RESCORE_BATCH_PAUSE")); err == nil && v >= 0 {
		cfg.BatchPause = v
	}
	if v, err := time.ParseDuration(os.Getenv("RESCORE_TASK_TIMEOUT")); err == nil && v > 0 {
		cfg.TaskTimeout = v
	}
	if os.Getenv("RESCORE_RUN_AT_STARTUP") == "false" {
		cfg.RunAtStartup = false
	}

	return cfg
}
