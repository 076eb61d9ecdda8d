package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

func TestRegisterDBPoolMetrics_Validation(t *testing.T) {
	_, err := telemetry.RegisterDBPoolMetrics(nil, func() (telemetry.PoolStats, error) {
		return telemetry.PoolStats{}, nil
	})
	assert.Error(t, err)

	provider := sdkmetric.NewMeterProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	_, err = telemetry.RegisterDBPoolMetrics(provider.Meter("test"), nil)
	assert.Error(t, err)
}

func TestRegisterDBPoolMetrics_ObservesPool(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	reg, err := telemetry.RegisterDBPoolMetrics(provider.Meter("test"), func() (telemetry.PoolStats, error) {
		return telemetry.PoolStats{MaxOpen: 25, InUse: 3, Idle: 7, WaitCount: 2, WaitDuration: 1500 * time.Millisecond}, nil
	})
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	conns, ok := byName["db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	states := map[string]int64{}
	for _, dp := range conns.DataPoints {
		state, _ := dp.Attributes.Value("state")
		states[state.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"in_use": 3, "idle": 7}, states)

	maxOpen, ok := byName["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(25), maxOpen.DataPoints[0].Value)

	waited, ok := byName["db_pool_wait_duration_seconds"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	assert.InDelta(t, 1.5, waited.DataPoints[0].Value, 1e-9)
}

func TestRegisterDBPoolMetrics_SourceErrorSkipsCycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, err := telemetry.RegisterDBPoolMetrics(provider.Meter("test"), func() (telemetry.PoolStats, error) {
		return telemetry.PoolStats{}, errors.New("pool closed")
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			assert.NotContains(t, m.Name, "db_pool", "no data points expected")
		}
	}
}
