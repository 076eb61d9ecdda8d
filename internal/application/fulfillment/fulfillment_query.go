package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

// FulfillmentView is the read model for one order's fulfillment state
type FulfillmentView struct {
	OrderID               uuid.UUID                    `json:"order_id"`
	Status                fulfillment.LocalStatus      `json:"status"`
	ExternalFulfillmentID string                       `json:"external_fulfillment_id,omitempty"`
	Submitted             bool                         `json:"submitted"`
	ProviderStatus        string                       `json:"provider_status,omitempty"`
	SubmittedAt           *time.Time                   `json:"submitted_at,omitempty"`
	ProviderResponse      json.RawMessage              `json:"provider_response,omitempty"`
	Shipments             []fulfillment.ShippingRecord `json:"shipments"`
}

// FulfillmentQuery reads local fulfillment state without calling the provider
type FulfillmentQuery struct {
	orders   fulfillment.OrderRepository
	records  fulfillment.FulfillmentRecordRepository
	shipping *ShippingRecordStore
}

// NewFulfillmentQuery creates a new FulfillmentQuery
func NewFulfillmentQuery(orders fulfillment.OrderRepository, records fulfillment.FulfillmentRecordRepository, shipping *ShippingRecordStore) *FulfillmentQuery {
	return &FulfillmentQuery{orders: orders, records: records, shipping: shipping}
}

// Get returns the order status, the audit record if the order was submitted,
// and recorded shipments.
func (q *FulfillmentQuery) Get(ctx context.Context, orderID uuid.UUID) (*FulfillmentView, error) {
	order, err := q.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := &FulfillmentView{
		OrderID:               order.ID,
		Status:                order.Status,
		ExternalFulfillmentID: order.ExternalFulfillmentID,
		Submitted:             order.IsSubmitted(),
	}

	if order.IsSubmitted() && q.records != nil {
		record, err := q.records.FindByOrderID(ctx, orderID)
		switch {
		case err == nil:
			view.ProviderStatus = record.ProviderStatus
			submittedAt := record.CreatedAt
			view.SubmittedAt = &submittedAt
			view.ProviderResponse = record.ResponsePayload
		case !errors.Is(err, fulfillment.ErrRecordNotFound):
			return nil, err
		}
	}

	shipments, err := q.shipping.List(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view.Shipments = shipments
	return view, nil
}

// Shipments returns the recorded shipments of an existing order
func (q *FulfillmentQuery) Shipments(ctx context.Context, orderID uuid.UUID) ([]fulfillment.ShippingRecord, error) {
	if _, err := q.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return q.shipping.List(ctx, orderID)
}
