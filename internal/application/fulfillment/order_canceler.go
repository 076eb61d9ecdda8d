package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

// CancelResult is the local view of an order after cancellation
type CancelResult struct {
	OrderID               uuid.UUID               `json:"order_id"`
	ExternalFulfillmentID string                  `json:"external_fulfillment_id"`
	ProviderStatus        string                  `json:"provider_status"`
	Status                fulfillment.LocalStatus `json:"status"`
	Applied               bool                    `json:"applied"`
}

// OrderCanceler cancels a submitted order at the provider. The external id is
// kept on the order so the provider record can still be looked up.
type OrderCanceler struct {
	orders         fulfillment.OrderRepository
	provider       provider.FulfillmentProvider
	credentials    provider.CredentialsSource
	updater        *StatusUpdater
	logger         *zap.Logger
	requestTimeout time.Duration
}

// OrderCancelerConfig contains dependencies for OrderCanceler
type OrderCancelerConfig struct {
	Orders         fulfillment.OrderRepository
	Provider       provider.FulfillmentProvider
	Credentials    provider.CredentialsSource
	Updater        *StatusUpdater
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// NewOrderCanceler creates a new OrderCanceler
func NewOrderCanceler(cfg OrderCancelerConfig) *OrderCanceler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OrderCanceler{
		orders:         cfg.Orders,
		provider:       cfg.Provider,
		credentials:    cfg.Credentials,
		updater:        cfg.Updater,
		logger:         logger,
		requestTimeout: timeout,
	}
}

// Cancel asks the provider to cancel orderID and applies the resulting status.
// Orders that already finished are rejected before calling the provider.
func (c *OrderCanceler) Cancel(ctx context.Context, orderID uuid.UUID) (result *CancelResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "cancel",
		telemetry.WithAttribute("order_id", orderID.String()),
	)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	order, err := loadSubmittedOrder(ctx, c.orders, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", fulfillment.ErrOrderNotSubmittable, order.Status)
	}

	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := withTimeout(ctx, c.requestTimeout)
	remote, err := c.provider.CancelOrder(callCtx, creds, order.ExternalFulfillmentID)
	cancel()
	if err != nil {
		c.logger.Error("Provider rejected order cancellation",
			zap.String("order_id", orderID.String()),
			zap.String("external_fulfillment_id", order.ExternalFulfillmentID),
			zap.Error(err),
		)
		return nil, err
	}

	providerStatus := remote.Status
	if providerStatus == "" {
		providerStatus = fulfillment.ProviderStatusCanceled
	}

	// An accepted cancel request is final even if the response lags behind.
	outcome, err := c.updater.Apply(ctx, StatusUpdate{
		Order:           order,
		ProviderOrderID: order.ExternalFulfillmentID,
		ProviderStatus:  fulfillment.ProviderStatusCanceled,
		Source:          SourceCancel,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Order canceled at fulfillment provider",
		zap.String("order_id", orderID.String()),
		zap.String("external_fulfillment_id", order.ExternalFulfillmentID),
		zap.String("status", outcome.Status.String()),
	)

	return &CancelResult{
		OrderID:               orderID,
		ExternalFulfillmentID: order.ExternalFulfillmentID,
		ProviderStatus:        providerStatus,
		Status:                outcome.Status,
		Applied:               outcome.Applied,
	}, nil
}
