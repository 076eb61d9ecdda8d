package fulfillment

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/roastery/backend/internal/domain/shared"
)

// FulfillmentRecord keeps the request and response exchanged with the provider
// when an order was submitted, and the last provider status seen for it.
type FulfillmentRecord struct {
	shared.BaseEntity
	OrderID         uuid.UUID
	ProviderOrderID string
	ProviderStatus  string
	RequestPayload  json.RawMessage
	ResponsePayload json.RawMessage
}

// NewFulfillmentRecord creates an audit record for a submitted order.
func NewFulfillmentRecord(orderID uuid.UUID, providerOrderID, providerStatus string, request, response json.RawMessage) *FulfillmentRecord {
	return &FulfillmentRecord{
		BaseEntity:      shared.NewBaseEntity(),
		OrderID:         orderID,
		ProviderOrderID: providerOrderID,
		ProviderStatus:  providerStatus,
		RequestPayload:  request,
		ResponsePayload: response,
	}
}
