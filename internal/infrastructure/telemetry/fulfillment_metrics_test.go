package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

func TestNewFulfillmentMetrics_NilMeter(t *testing.T) {
	fm, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{})

	require.Error(t, err)
	assert.Nil(t, fm)
	assert.Equal(t, "NewFulfillmentMetrics: meter cannot be nil", err.Error())
}

func TestFulfillmentMetrics_NilReceiver(t *testing.T) {
	var fm *telemetry.FulfillmentMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordSubmission(ctx, "submitted", time.Second)
		fm.RecordStatusUpdate(ctx, "poll", "applied")
		fm.RecordShipment(ctx, "webhook", true)
		fm.RecordWebhook(ctx, "order:updated", "processed")
		fm.RecordCatalogProduct(ctx, "created")
		fm.RecordProviderCall(ctx, "get_order", "ok", time.Millisecond)
	})
}

func TestFulfillmentMetrics_Noop(t *testing.T) {
	fm, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		fm.RecordStatusUpdate(context.Background(), "poll", "regression")
	})
}

func TestFulfillmentMetrics_RecordsStatusUpdates(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	fm, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter: provider.Meter("test"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	fm.RecordStatusUpdate(ctx, "poll", "applied")
	fm.RecordStatusUpdate(ctx, "webhook", "regression")
	fm.RecordStatusUpdate(ctx, "webhook", "regression")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sum := findSum(t, rm, "roastery_fulfillment_status_updates_total")
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		source, _ := dp.Attributes.Value(attribute.Key("source"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[source.AsString()+"/"+outcome.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), counts["poll/applied"])
	assert.Equal(t, int64(2), counts["webhook/regression"])
}

func findSum(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok, "metric %s is not an int64 sum", name)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Sum[int64]{}
}
