package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

// Update sources, used in logs and metrics
const (
	SourcePoll    = "poll"
	SourceWebhook = "webhook"
	SourceCancel  = "cancel"
)

// StatusUpdate is one observation of provider state for a local order.
type StatusUpdate struct {
	Order           *fulfillment.Order
	ProviderOrderID string
	// ProviderStatus may be empty when the observation carries shipments only
	ProviderStatus string
	Shipments      []fulfillment.ShippingInfo
	Source         string
}

// UpdateOutcome describes what an observation changed.
type UpdateOutcome struct {
	PreviousStatus fulfillment.LocalStatus
	Status         fulfillment.LocalStatus
	Transition     fulfillment.Transition
	Applied        bool
	NewShipments   int
	Shipments      []fulfillment.ShippingRecord
	Warnings       []string
}

// StatusUpdater is the single write path shared by polling and webhooks.
// Status writes are gated by the monotonic guard at the storage layer and
// shipments go through the idempotent ShippingRecordStore, so concurrent
// observers converge without locks.
type StatusUpdater struct {
	orders   fulfillment.OrderRepository
	records  fulfillment.FulfillmentRecordRepository
	shipping *ShippingRecordStore
	metrics  *telemetry.FulfillmentMetrics
	logger   *zap.Logger
}

// StatusUpdaterConfig contains dependencies for StatusUpdater
type StatusUpdaterConfig struct {
	Orders   fulfillment.OrderRepository
	Records  fulfillment.FulfillmentRecordRepository
	Shipping *ShippingRecordStore
	Metrics  *telemetry.FulfillmentMetrics
	Logger   *zap.Logger
}

// NewStatusUpdater creates a new StatusUpdater
func NewStatusUpdater(cfg StatusUpdaterConfig) *StatusUpdater {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusUpdater{
		orders:   cfg.Orders,
		records:  cfg.Records,
		shipping: cfg.Shipping,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Apply maps the provider status, writes it if it is forward progress, and
// records shipments unless the order was already delivered or canceled. A
// regression is logged and reported in the outcome, not
// returned as an error.
func (u *StatusUpdater) Apply(ctx context.Context, upd StatusUpdate) (*UpdateOutcome, error) {
	order := upd.Order
	outcome := &UpdateOutcome{
		PreviousStatus: order.Status,
		Status:         order.Status,
		Transition:     fulfillment.TransitionUnchanged,
	}

	if upd.ProviderStatus != "" {
		if err := u.applyStatus(ctx, upd, outcome); err != nil {
			return nil, err
		}
	}

	shipments := upd.Shipments
	if len(shipments) > 0 && (outcome.PreviousStatus.IsTerminal() || outcome.Transition == fulfillment.TransitionTerminal) {
		// Finished orders are immutable, shipments included.
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("order is %s; %d shipment(s) ignored", order.Status, len(shipments)))
		u.logger.Info("Ignoring shipments for finished order",
			zap.String("order_id", order.ID.String()),
			zap.String("status", order.Status.String()),
			zap.Int("shipments", len(shipments)),
			zap.String("source", upd.Source),
		)
		shipments = nil
	}

	for _, info := range shipments {
		_, created, err := u.shipping.Upsert(ctx, order.ID, info)
		if err != nil {
			if errors.Is(err, fulfillment.ErrTrackingNumberRequired) {
				outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("skipped shipment from carrier %q without tracking number", info.Carrier))
				u.logger.Warn("Skipping shipment without tracking number",
					zap.String("order_id", order.ID.String()),
					zap.String("carrier", info.Carrier),
					zap.String("source", upd.Source),
				)
				continue
			}
			return nil, err
		}
		if created {
			outcome.NewShipments++
		}
		u.metrics.RecordShipment(ctx, upd.Source, created)
	}

	stored, err := u.shipping.List(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipping records: %w", err)
	}
	outcome.Shipments = stored

	if upd.ProviderOrderID != "" && upd.ProviderStatus != "" && u.records != nil {
		if err := u.records.UpdateProviderStatus(ctx, upd.ProviderOrderID, upd.ProviderStatus); err != nil &&
			!errors.Is(err, fulfillment.ErrRecordNotFound) {
			u.logger.Warn("Failed to update fulfillment record status",
				zap.String("provider_order_id", upd.ProviderOrderID),
				zap.Error(err),
			)
		}
	}

	return outcome, nil
}

func (u *StatusUpdater) applyStatus(ctx context.Context, upd StatusUpdate, outcome *UpdateOutcome) error {
	order := upd.Order
	target := fulfillment.MapProviderStatus(upd.ProviderStatus)
	decision := fulfillment.DecideTransition(order.Status, target)

	if decision == fulfillment.TransitionApply {
		ok, err := u.orders.TransitionStatus(ctx, order.ID, target, fulfillment.Predecessors(target))
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if ok {
			order.Status = target
			order.Touch()
		} else {
			// The stored status moved since the order was read. Re-read it and
			// report what the guard decided against the fresh value.
			fresh, err := u.orders.FindByID(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("failed to reload order: %w", err)
			}
			order.Status = fresh.Status
			decision = fulfillment.DecideTransition(fresh.Status, target)
			if decision == fulfillment.TransitionApply {
				// Status moved again after the failed write; the next observation will apply it.
				decision = fulfillment.TransitionRegression
			}
		}
	}

	outcome.Transition = decision
	outcome.Status = order.Status
	outcome.Applied = decision == fulfillment.TransitionApply
	u.metrics.RecordStatusUpdate(ctx, upd.Source, decision.String())

	fields := []zap.Field{
		zap.String("order_id", order.ID.String()),
		zap.String("provider_status", upd.ProviderStatus),
		zap.String("from", outcome.PreviousStatus.String()),
		zap.String("to", target.String()),
		zap.String("source", upd.Source),
	}
	switch decision {
	case fulfillment.TransitionApply:
		u.logger.Info("Order status updated", fields...)
	case fulfillment.TransitionRegression:
		u.logger.Info("Ignoring out-of-order status update", fields...)
	case fulfillment.TransitionTerminal:
		u.logger.Info("Ignoring status update for finished order", fields...)
	}
	return nil
}

// loadSubmittedOrder fetches an order and checks it has been submitted
func loadSubmittedOrder(ctx context.Context, orders fulfillment.OrderRepository, orderID uuid.UUID) (*fulfillment.Order, error) {
	order, err := orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsSubmitted() {
		return nil, fmt.Errorf("%w: order %s", fulfillment.ErrNotYetSubmitted, orderID)
	}
	return order, nil
}

// withTimeout bounds a provider call; a zero timeout leaves ctx untouched
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
