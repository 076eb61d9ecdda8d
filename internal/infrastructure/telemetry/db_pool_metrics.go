package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PoolStats is a snapshot of the database connection pool
type PoolStats struct {
	MaxOpen      int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}

// PoolStatsSource reads the current pool statistics
type PoolStatsSource func() (PoolStats, error)

// RegisterDBPoolMetrics exports pool statistics as observable instruments.
// The source is read on every collection; a failing read skips that cycle.
func RegisterDBPoolMetrics(meter metric.Meter, source PoolStatsSource) (metric.Registration, error) {
	if meter == nil {
		return nil, errors.New("telemetry: meter cannot be nil")
	}
	if source == nil {
		return nil, errors.New("telemetry: pool stats source cannot be nil")
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Total number of waits for a free connection"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}
	waitDuration, err := meter.Float64ObservableCounter("db_pool_wait_duration_seconds",
		metric.WithDescription("Total time spent waiting for a free connection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	inUseAttrs := metric.WithAttributes(attribute.String("state", "in_use"))
	idleAttrs := metric.WithAttributes(attribute.String("state", "idle"))

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats, err := source()
		if err != nil {
			return nil
		}
		o.ObserveInt64(connections, int64(stats.InUse), inUseAttrs)
		o.ObserveInt64(connections, int64(stats.Idle), idleAttrs)
		o.ObserveInt64(maxOpen, int64(stats.MaxOpen))
		o.ObserveInt64(waits, stats.WaitCount)
		o.ObserveFloat64(waitDuration, stats.WaitDuration.Seconds())
		return nil
	}, connections, maxOpen, waits, waitDuration)
}
