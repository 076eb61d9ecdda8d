package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/domain/shared"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

const submitClaimPrefix = "fulfillment:submit:"

// SubmitResult is returned after the provider accepted an order
type SubmitResult struct {
	OrderID               uuid.UUID               `json:"order_id"`
	ExternalFulfillmentID string                  `json:"external_fulfillment_id"`
	ProviderStatus        string                  `json:"provider_status,omitempty"`
	Status                fulfillment.LocalStatus `json:"status"`
}

// OrderSubmitter sends paid orders to the fulfillment provider and records the
// provider's order id exactly once.
type OrderSubmitter struct {
	orders      fulfillment.OrderRepository
	records     fulfillment.FulfillmentRecordRepository
	provider    provider.FulfillmentProvider
	credentials provider.CredentialsSource
	claims      shared.IdempotencyStore
	validate    *validator.Validate
	metrics     *telemetry.FulfillmentMetrics
	logger      *zap.Logger

	claimTTL       time.Duration
	requestTimeout time.Duration
}

// OrderSubmitterConfig contains dependencies for OrderSubmitter
type OrderSubmitterConfig struct {
	Orders      fulfillment.OrderRepository
	Records     fulfillment.FulfillmentRecordRepository
	Provider    provider.FulfillmentProvider
	Credentials provider.CredentialsSource
	Claims      shared.IdempotencyStore
	Validate    *validator.Validate
	Metrics     *telemetry.FulfillmentMetrics
	Logger      *zap.Logger

	ClaimTTL       time.Duration // Default: 2 minutes
	RequestTimeout time.Duration // Default: 15 seconds
}

// NewOrderSubmitter creates a new OrderSubmitter
func NewOrderSubmitter(cfg OrderSubmitterConfig) *OrderSubmitter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := cfg.Validate
	if validate == nil {
		validate = validator.New()
	}
	claimTTL := cfg.ClaimTTL
	if claimTTL <= 0 {
		claimTTL = shared.DefaultIdempotencyConfig().ClaimTTL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OrderSubmitter{
		orders:         cfg.Orders,
		records:        cfg.Records,
		provider:       cfg.Provider,
		credentials:    cfg.Credentials,
		claims:         cfg.Claims,
		validate:       validate,
		metrics:        cfg.Metrics,
		logger:         logger,
		claimTTL:       claimTTL,
		requestTimeout: timeout,
	}
}

// Submit creates the provider order for orderID. A second call for an order
// that already has an external id is rejected with ErrAlreadySubmitted. On
// provider failure nothing is written and the order stays paid.
func (s *OrderSubmitter) Submit(ctx context.Context, orderID uuid.UUID, address fulfillment.ShippingAddress) (result *SubmitResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "submit",
		telemetry.WithAttribute("order_id", orderID.String()),
	)
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.RecordSubmission(ctx, submissionOutcome(err), time.Since(start))
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CheckSubmittable(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(address); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrInvalidShippingAddress, err)
	}
	lineItems, err := order.ProviderLineItems()
	if err != nil {
		return nil, err
	}

	creds, err := s.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	claimKey := submitClaimPrefix + orderID.String()
	claimed, err := s.claims.MarkProcessed(ctx, claimKey, s.claimTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim order submission: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: order %s", fulfillment.ErrSubmissionInProgress, orderID)
	}
	defer func() {
		if releaseErr := s.claims.Release(context.WithoutCancel(ctx), claimKey); releaseErr != nil {
			s.logger.Warn("Failed to release submission claim",
				zap.String("order_id", orderID.String()),
				zap.Error(releaseErr),
			)
		}
	}()

	req := provider.CreateOrderRequest{
		ExternalID:               orderID.String(),
		Label:                    orderID.String(),
		LineItems:                lineItems,
		ShippingMethod:           provider.DefaultShippingMethod,
		SendShippingNotification: true,
		AddressTo:                address.ToProvider(),
	}

	callCtx, cancel := withTimeout(ctx, s.requestTimeout)
	created, err := s.provider.CreateOrder(callCtx, creds, req)
	cancel()
	if err != nil {
		s.logger.Error("Provider rejected order submission",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	assigned, err := s.orders.AssignExternalFulfillmentID(ctx, orderID, created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record external fulfillment id: %w", err)
	}
	if !assigned {
		s.cancelOrphan(ctx, creds, orderID, created.ID)
		return nil, fmt.Errorf("%w: order %s", fulfillment.ErrAlreadySubmitted, orderID)
	}

	s.saveRecord(ctx, orderID, created, req)

	s.logger.Info("Order submitted to fulfillment provider",
		zap.String("order_id", orderID.String()),
		zap.String("external_fulfillment_id", created.ID),
		zap.Int("line_items", len(lineItems)),
	)

	return &SubmitResult{
		OrderID:               orderID,
		ExternalFulfillmentID: created.ID,
		ProviderStatus:        created.Status,
		Status:                order.Status,
	}, nil
}

// cancelOrphan cancels a provider order created by a submission that lost the
// race to record its id
func (s *OrderSubmitter) cancelOrphan(ctx context.Context, creds provider.Credentials, orderID uuid.UUID, providerOrderID string) {
	s.logger.Warn("External fulfillment id already assigned, canceling duplicate provider order",
		zap.String("order_id", orderID.String()),
		zap.String("provider_order_id", providerOrderID),
	)
	callCtx, cancel := withTimeout(context.WithoutCancel(ctx), s.requestTimeout)
	defer cancel()
	if _, err := s.provider.CancelOrder(callCtx, creds, providerOrderID); err != nil {
		s.logger.Error("Failed to cancel duplicate provider order",
			zap.String("provider_order_id", providerOrderID),
			zap.Error(err),
		)
	}
}

// saveRecord stores the audit record; failure does not undo the submission
func (s *OrderSubmitter) saveRecord(ctx context.Context, orderID uuid.UUID, created *provider.Order, req provider.CreateOrderRequest) {
	if s.records == nil {
		return
	}
	request, err := json.Marshal(req)
	if err != nil {
		request = nil
	}
	record := fulfillment.NewFulfillmentRecord(orderID, created.ID, created.Status, request, created.Raw)
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Warn("Failed to save fulfillment record",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "submitted"
	case errors.Is(err, fulfillment.ErrAlreadySubmitted):
		return "duplicate"
	default:
		return string(fulfillment.Classify(err))
	}
}
