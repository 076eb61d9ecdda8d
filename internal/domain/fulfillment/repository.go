package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository reads orders and performs the two guarded writes the
// fulfillment context is allowed to make.
type OrderRepository interface {
	// FindByID returns ErrOrderNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalFulfillmentID returns ErrOrderNotFound when absent.
	FindByExternalFulfillmentID(ctx context.Context, externalID string) (*Order, error)

	// Save creates an order with its line items.
	Save(ctx context.Context, order *Order) error

	// AssignExternalFulfillmentID sets the external id only if none is set yet.
	// Returns false when another writer assigned one first.
	AssignExternalFulfillmentID(ctx context.Context, id uuid.UUID, externalID string) (bool, error)

	// TransitionStatus writes to only if the stored status is one of from.
	// Returns false when the stored status did not match.
	TransitionStatus(ctx context.Context, id uuid.UUID, to LocalStatus, from []LocalStatus) (bool, error)
}

// ShippingRecordRepository stores shipments keyed by (order id, tracking number).
type ShippingRecordRepository interface {
	// FindByOrderAndTracking returns ErrShippingRecordNotFound when absent.
	FindByOrderAndTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*ShippingRecord, error)

	// InsertIfAbsent inserts the record unless one with the same key exists.
	// Returns true when a row was inserted.
	InsertIfAbsent(ctx context.Context, record *ShippingRecord) (bool, error)

	// ListByOrder returns records in the order they were first recorded.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]ShippingRecord, error)
}

// FulfillmentRecordRepository stores submission audit records.
type FulfillmentRecordRepository interface {
	Save(ctx context.Context, record *FulfillmentRecord) error

	// FindByOrderID returns ErrRecordNotFound when absent.
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*FulfillmentRecord, error)

	// UpdateProviderStatus records the last provider status seen for a provider order.
	UpdateProviderStatus(ctx context.Context, providerOrderID, status string) error
}
