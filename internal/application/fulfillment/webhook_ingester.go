package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/shared"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

const webhookEventPrefix = "fulfillment:webhook:"

// WebhookSecretSource returns the current webhook signing secret. An empty
// secret means none is configured.
type WebhookSecretSource interface {
	WebhookSecret(ctx context.Context) (string, error)
}

// SignatureVerifier checks a webhook body against its signature header
type SignatureVerifier interface {
	Verify(secret string, payload []byte, signature string) error
}

// IngestResult reports what happened to one webhook delivery
type IngestResult struct {
	EventID   string                  `json:"event_id,omitempty"`
	EventType string                  `json:"event_type"`
	Processed bool                    `json:"processed"`
	Discarded bool                    `json:"discarded,omitempty"`
	Duplicate bool                    `json:"duplicate,omitempty"`
	Status    fulfillment.LocalStatus `json:"status,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

// WebhookIngester applies provider push notifications through the same update
// path as polling. Replays are safe: shipment upserts and the status guard make
// a second delivery a no-op, and events with an id are also short-circuited by
// the dedup store.
type WebhookIngester struct {
	orders        fulfillment.OrderRepository
	updater       *StatusUpdater
	verifier      SignatureVerifier
	secrets       WebhookSecretSource
	dedup         shared.IdempotencyStore
	metrics       *telemetry.FulfillmentMetrics
	logger        *zap.Logger
	dedupTTL      time.Duration
	allowUnsigned bool
}

// WebhookIngesterConfig contains dependencies for WebhookIngester
type WebhookIngesterConfig struct {
	Orders   fulfillment.OrderRepository
	Updater  *StatusUpdater
	Verifier SignatureVerifier
	Secrets  WebhookSecretSource
	// Dedup is optional
	Dedup   shared.IdempotencyStore
	Metrics *telemetry.FulfillmentMetrics
	Logger  *zap.Logger

	DedupTTL time.Duration // Default: 24 hours
	// AllowUnsigned accepts events when no secret is configured. Development only.
	AllowUnsigned bool
}

// NewWebhookIngester creates a new WebhookIngester
func NewWebhookIngester(cfg WebhookIngesterConfig) *WebhookIngester {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &WebhookIngester{
		orders:        cfg.Orders,
		updater:       cfg.Updater,
		verifier:      cfg.Verifier,
		secrets:       cfg.Secrets,
		dedup:         cfg.Dedup,
		metrics:       cfg.Metrics,
		logger:        logger,
		dedupTTL:      ttl,
		allowUnsigned: cfg.AllowUnsigned,
	}
}

// Ingest verifies, parses and applies one webhook delivery. A returned error
// means the delivery was rejected and the provider should retry it; events for
// unknown orders or of unknown types are acknowledged without error.
func (w *WebhookIngester) Ingest(ctx context.Context, payload []byte, signature string) (result *IngestResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "ingest_webhook")
	defer span.End()
	defer func() {
		eventType := "invalid"
		outcome := ingestOutcome(result, err)
		if result != nil {
			eventType = result.EventType
		}
		w.metrics.RecordWebhook(ctx, eventType, outcome)
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	if err := w.verify(ctx, payload, signature); err != nil {
		w.logger.Warn("Rejected webhook delivery", zap.Error(err))
		return nil, err
	}

	event, err := fulfillment.ParseWebhookEvent(payload)
	if err != nil {
		return nil, err
	}
	result = &IngestResult{EventID: event.ID, EventType: string(event.Type)}
	telemetry.SetAttribute(span, "event_type", string(event.Type))

	if !event.Type.IsKnown() {
		w.logger.Info("Ignoring webhook event of unknown type",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		result.Message = "event type ignored"
		return result, nil
	}

	duplicate, err := w.seenEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if duplicate {
		w.logger.Info("Webhook event already processed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		result.Duplicate = true
		result.Message = "event already processed"
		return result, nil
	}

	applied, err := w.apply(ctx, event, result)
	if err != nil {
		return nil, err
	}
	w.markEvent(ctx, event)
	return applied, nil
}

func (w *WebhookIngester) verify(ctx context.Context, payload []byte, signature string) error {
	secret, err := w.secrets.WebhookSecret(ctx)
	if err != nil {
		return fmt.Errorf("failed to load webhook secret: %w", err)
	}
	if strings.TrimSpace(secret) == "" {
		if w.allowUnsigned {
			return nil
		}
		return fulfillment.ErrWebhookSecretMissing
	}
	return w.verifier.Verify(secret, payload, signature)
}

// seenEvent reports whether the event id was already applied. Events
// without an id are never short-circuited.
func (w *WebhookIngester) seenEvent(ctx context.Context, event *fulfillment.WebhookEvent) (bool, error) {
	if w.dedup == nil || strings.TrimSpace(event.ID) == "" {
		return false, nil
	}
	seen, err := w.dedup.IsProcessed(ctx, webhookEventPrefix+event.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return seen, nil
}

// markEvent records the event id once the event has been applied. A crash
// before this point leaves the id unrecorded, so the redelivery is applied
// again; the status guard and shipment upserts make that a no-op.
func (w *WebhookIngester) markEvent(ctx context.Context, event *fulfillment.WebhookEvent) {
	if w.dedup == nil || strings.TrimSpace(event.ID) == "" {
		return
	}
	if _, err := w.dedup.MarkProcessed(context.WithoutCancel(ctx), webhookEventPrefix+event.ID, w.dedupTTL); err != nil {
		w.logger.Warn("Failed to record webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
}

func (w *WebhookIngester) apply(ctx context.Context, event *fulfillment.WebhookEvent, result *IngestResult) (*IngestResult, error) {
	order, err := w.resolveOrder(ctx, event)
	if err != nil {
		if errors.Is(err, errForeignProviderOrder) {
			w.logger.Warn("Discarding webhook event for another provider order",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("provider_order_id", event.Data.ID),
				zap.String("external_id", event.Data.ExternalID),
			)
			result.Discarded = true
			result.Message = "event is for another provider order"
			return result, nil
		}
		if errors.Is(err, fulfillment.ErrOrderNotFound) {
			w.logger.Warn("Discarding webhook event for unknown order",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("provider_order_id", event.Data.ID),
				zap.String("external_id", event.Data.ExternalID),
			)
			result.Discarded = true
			result.Message = "no matching order"
			return result, nil
		}
		return nil, err
	}

	outcome, err := w.updater.Apply(ctx, StatusUpdate{
		Order:           order,
		ProviderOrderID: order.ExternalFulfillmentID,
		ProviderStatus:  event.TargetStatus(),
		Shipments:       event.ShippingInfos(),
		Source:          SourceWebhook,
	})
	if err != nil {
		return nil, err
	}

	result.Processed = true
	result.Status = outcome.Status
	if len(outcome.Warnings) > 0 {
		result.Message = strings.Join(outcome.Warnings, "; ")
	}
	return result, nil
}

// errForeignProviderOrder marks an event whose provider order id belongs to
// no local order even though its external_id names one. The provider sends
// these for orphaned duplicate orders created with the same external_id.
var errForeignProviderOrder = errors.New("webhook event names another provider order")

// resolveOrder finds the local order by provider order id. The local id the
// provider echoes back as external_id is only used when the event carries no
// provider order id.
func (w *WebhookIngester) resolveOrder(ctx context.Context, event *fulfillment.WebhookEvent) (*fulfillment.Order, error) {
	providerID := strings.TrimSpace(event.Data.ID)
	if providerID != "" {
		order, err := w.orders.FindByExternalFulfillmentID(ctx, providerID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, fulfillment.ErrOrderNotFound) {
			return nil, err
		}
	}

	localID, err := uuid.Parse(strings.TrimSpace(event.Data.ExternalID))
	if err != nil {
		return nil, fulfillment.ErrOrderNotFound
	}
	order, err := w.orders.FindByID(ctx, localID)
	if err != nil {
		return nil, err
	}
	if !order.IsSubmitted() {
		// Submission never recorded a provider id for this order.
		return nil, fulfillment.ErrOrderNotFound
	}
	if providerID != "" && order.ExternalFulfillmentID != providerID {
		return nil, errForeignProviderOrder
	}
	return order, nil
}

func ingestOutcome(result *IngestResult, err error) string {
	switch {
	case err != nil:
		return string(fulfillment.Classify(err))
	case result == nil:
		return "unknown"
	case result.Duplicate:
		return "duplicate"
	case result.Discarded:
		return "discarded"
	case result.Processed:
		return "processed"
	default:
		return "ignored"
	}
}
