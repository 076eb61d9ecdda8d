package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

// SyncResult is the local view of an order after a reconciliation
type SyncResult struct {
	OrderID        uuid.UUID                    `json:"order_id"`
	ProviderStatus string                       `json:"provider_status"`
	LocalStatus    fulfillment.LocalStatus      `json:"status"`
	Applied        bool                         `json:"applied"`
	Transition     string                       `json:"transition"`
	Shipments      []fulfillment.ShippingRecord `json:"shipments"`
	Warnings       []string                     `json:"warnings,omitempty"`
}

// StatusReconciler pulls the provider's view of one order and applies it
type StatusReconciler struct {
	orders         fulfillment.OrderRepository
	provider       provider.FulfillmentProvider
	credentials    provider.CredentialsSource
	updater        *StatusUpdater
	logger         *zap.Logger
	requestTimeout time.Duration
}

// StatusReconcilerConfig contains dependencies for StatusReconciler
type StatusReconcilerConfig struct {
	Orders         fulfillment.OrderRepository
	Provider       provider.FulfillmentProvider
	Credentials    provider.CredentialsSource
	Updater        *StatusUpdater
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// NewStatusReconciler creates a new StatusReconciler
func NewStatusReconciler(cfg StatusReconcilerConfig) *StatusReconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StatusReconciler{
		orders:         cfg.Orders,
		provider:       cfg.Provider,
		credentials:    cfg.Credentials,
		updater:        cfg.Updater,
		logger:         logger,
		requestTimeout: timeout,
	}
}

// SyncOne fetches the provider order for orderID and runs it through the
// shared update path. Provider failures leave local state untouched.
func (r *StatusReconciler) SyncOne(ctx context.Context, orderID uuid.UUID) (result *SyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "sync_one",
		telemetry.WithAttribute("order_id", orderID.String()),
	)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	order, err := loadSubmittedOrder(ctx, r.orders, orderID)
	if err != nil {
		return nil, err
	}

	creds, err := r.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := withTimeout(ctx, r.requestTimeout)
	remote, err := r.provider.GetOrder(callCtx, creds, order.ExternalFulfillmentID)
	cancel()
	if err != nil {
		r.logger.Error("Failed to fetch order from fulfillment provider",
			zap.String("order_id", orderID.String()),
			zap.String("external_fulfillment_id", order.ExternalFulfillmentID),
			zap.Error(err),
		)
		return nil, err
	}

	var warnings []string
	remoteShipments := remote.Shipments
	if len(remoteShipments) == 0 && hasShipped(remote.Status) {
		// some order payloads omit shipments; the shipping endpoint has them
		callCtx, cancel := withTimeout(ctx, r.requestTimeout)
		remoteShipments, err = r.provider.GetShipments(callCtx, creds, order.ExternalFulfillmentID)
		cancel()
		if err != nil {
			r.logger.Warn("Failed to fetch shipments from fulfillment provider",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
			warnings = append(warnings, "shipments unavailable: "+err.Error())
		}
	}

	shipments := make([]fulfillment.ShippingInfo, 0, len(remoteShipments))
	for _, s := range remoteShipments {
		shipments = append(shipments, fulfillment.ShippingInfoFromProvider(s))
	}

	outcome, err := r.updater.Apply(ctx, StatusUpdate{
		Order:           order,
		ProviderOrderID: order.ExternalFulfillmentID,
		ProviderStatus:  remote.Status,
		Shipments:       shipments,
		Source:          SourcePoll,
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttribute(span, "transition", outcome.Transition.String())
	return &SyncResult{
		OrderID:        orderID,
		ProviderStatus: remote.Status,
		LocalStatus:    outcome.Status,
		Applied:        outcome.Applied,
		Transition:     outcome.Transition.String(),
		Shipments:      outcome.Shipments,
		Warnings:       append(warnings, outcome.Warnings...),
	}, nil
}

// hasShipped reports whether the provider status implies tracking exists
func hasShipped(providerStatus string) bool {
	switch fulfillment.MapProviderStatus(providerStatus) {
	case fulfillment.StatusShipped, fulfillment.StatusDelivered:
		return true
	}
	return false
}
