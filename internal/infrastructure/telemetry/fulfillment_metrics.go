package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// FulfillmentMetrics counts what the fulfillment sync engine does. A nil
// *FulfillmentMetrics is valid and records nothing.
type FulfillmentMetrics struct {
	logger *zap.Logger

	submissions      *Counter
	statusUpdates    *Counter
	shipments        *Counter
	webhookEvents    *Counter
	catalogProducts  *Counter
	providerDuration *Histogram
	submitDuration   *Histogram
}

// FulfillmentMetricsConfig holds configuration for fulfillment metrics.
type FulfillmentMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewFulfillmentMetrics registers the fulfillment instruments on cfg.Meter.
func NewFulfillmentMetrics(cfg FulfillmentMetricsConfig) (*FulfillmentMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	in := NewInstruments(cfg.Meter)
	fm := &FulfillmentMetrics{logger: logger}
	fm.submissions = in.Counter("roastery_fulfillment_submissions_total",
		"Order submissions to the fulfillment provider by outcome", "{submissions}")
	fm.statusUpdates = in.Counter("roastery_fulfillment_status_updates_total",
		"Observed provider statuses by source and guard decision", "{updates}")
	fm.shipments = in.Counter("roastery_fulfillment_shipments_total",
		"Shipment observations by source, split into new and already recorded", "{shipments}")
	fm.webhookEvents = in.Counter("roastery_fulfillment_webhook_events_total",
		"Webhook deliveries by event type and outcome", "{events}")
	fm.catalogProducts = in.Counter("roastery_catalog_sync_products_total",
		"Products handled by catalog sync by outcome", "{products}")
	fm.providerDuration = in.Seconds("roastery_fulfillment_provider_request_duration_seconds",
		"Latency of fulfillment provider API calls", ProviderDurationBuckets)
	fm.submitDuration = in.Seconds("roastery_fulfillment_submit_duration_seconds",
		"End-to-end duration of order submission", ProviderDurationBuckets)
	if err := in.Err(); err != nil {
		return nil, err
	}

	return fm, nil
}

// RecordSubmission records one submit attempt.
func (m *FulfillmentMetrics) RecordSubmission(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.Inc(ctx, AttrOutcome.String(outcome))
	m.submitDuration.Observe(ctx, d, AttrOutcome.String(outcome))
}

// RecordStatusUpdate records one guard decision (applied, unchanged,
// regression, terminal).
func (m *FulfillmentMetrics) RecordStatusUpdate(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	m.statusUpdates.Inc(ctx, AttrSource.String(source), AttrOutcome.String(outcome))
}

// RecordShipment records one shipment observation.
func (m *FulfillmentMetrics) RecordShipment(ctx context.Context, source string, created bool) {
	if m == nil {
		return
	}
	m.shipments.Inc(ctx, AttrSource.String(source), AttrCreated.String(strconv.FormatBool(created)))
}

// RecordWebhook records one webhook delivery.
func (m *FulfillmentMetrics) RecordWebhook(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
}

// RecordCatalogProduct records one product handled by catalog sync
// (created, updated, failed).
func (m *FulfillmentMetrics) RecordCatalogProduct(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.catalogProducts.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordProviderCall records the latency of one provider API call.
func (m *FulfillmentMetrics) RecordProviderCall(ctx context.Context, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerDuration.Observe(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewFulfillmentMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
