package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "breathclean-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)

	// Disabled telemetry means no SDK providers behind the noop API.
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracer_ReturnsGlobalTracer(t *testing.T) {
	assert.NotNil(t, telemetry.Tracer("breathclean-test"))
}

func TestMeter_ReturnsGlobalMeter(t *testing.T) {
	assert.NotNil(t, telemetry.Meter("breathclean-test"))
}

func TestPipelineMetrics_New(t *testing.T) {
	m, err := telemetry.NewPipelineMetrics()
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestPipelineMetrics_RecordsWithoutPanic(t *testing.T) {
	m, err := telemetry.NewPipelineMetrics()
	require.NoError(t, err)

	m.RecordFetch("openweathermap", 120*time.Millisecond, nil)
	m.RecordFetch("waqi", 2*time.Second, errors.New("upstream timeout"))
	m.RecordCacheHit()
	m.RecordCacheMiss()
}

func TestPipelineMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *telemetry.PipelineMetrics

	m.RecordFetch("openweathermap", time.Second, nil)
	m.RecordCacheHit()
	m.RecordCacheMiss()
}
