package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineItem is one purchased product. UnitPrice is captured at purchase time
// and is never recomputed from the current catalog price.
type LineItem struct {
	ID                uuid.UUID
	ProductID         uuid.UUID
	ProviderProductID string
	ProviderVariantID int64
	Quantity          int
	UnitPrice         decimal.Decimal
}

// IsFulfillable reports whether the provider can produce this item.
func (li LineItem) IsFulfillable() bool {
	return strings.TrimSpace(li.ProviderProductID) != "" && li.ProviderVariantID > 0 && li.Quantity > 0
}

// Subtotal returns UnitPrice * Quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a storefront order as seen by the fulfillment context.
type Order struct {
	shared.BaseEntity
	Total                 decimal.Decimal
	Status                LocalStatus
	ExternalFulfillmentID string
	LineItems             []LineItem
}

// NewPaidOrder creates an order in its initial paid status. The payment flow
// owns order creation; this constructor mirrors what it writes.
func NewPaidOrder(items []LineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrOrderHasNoItems
	}
	total := decimal.Zero
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].Quantity <= 0 {
			return nil, fmt.Errorf("line item %d: quantity must be positive", i)
		}
		total = total.Add(items[i].Subtotal())
	}
	return &Order{
		BaseEntity: shared.NewBaseEntity(),
		Total:      total,
		Status:     StatusPaid,
		LineItems:  items,
	}, nil
}

// IsSubmitted reports whether the provider has accepted the order.
func (o *Order) IsSubmitted() bool {
	return o.ExternalFulfillmentID != ""
}

// IsTerminal reports whether the order is delivered or canceled.
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// CheckSubmittable returns the reason the order cannot be sent to the provider.
func (o *Order) CheckSubmittable() error {
	if o.IsSubmitted() {
		return fmt.Errorf("%w: external id %s", ErrAlreadySubmitted, o.ExternalFulfillmentID)
	}
	if o.Status != StatusPaid {
		return fmt.Errorf("%w: status is %s", ErrOrderNotSubmittable, o.Status)
	}
	if len(o.LineItems) == 0 {
		return ErrOrderHasNoItems
	}
	return nil
}

// ProviderLineItems converts line items to the provider representation.
// Any item without provider ids fails the whole conversion.
func (o *Order) ProviderLineItems() ([]provider.OrderLineItem, error) {
	items := make([]provider.OrderLineItem, 0, len(o.LineItems))
	for i, li := range o.LineItems {
		if !li.IsFulfillable() {
			return nil, fmt.Errorf("%w: item %d (product %s)", ErrLineItemNotFulfillable, i, li.ProductID)
		}
		items = append(items, provider.OrderLineItem{
			ProductID: li.ProviderProductID,
			VariantID: li.ProviderVariantID,
			Quantity:  li.Quantity,
		})
	}
	return items, nil
}

// ShippingAddress is the destination an order is shipped to.
type ShippingAddress struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Country   string `json:"country" validate:"required,len=2"`
	Region    string `json:"region" validate:"omitempty,max=100"`
	Address1  string `json:"address1" validate:"required,max=255"`
	Address2  string `json:"address2" validate:"omitempty,max=255"`
	City      string `json:"city" validate:"required,max=100"`
	Zip       string `json:"zip" validate:"required,max=20"`
}

// ToProvider converts the address to the provider's address_to block.
func (a ShippingAddress) ToProvider() provider.Address {
	return provider.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Country:   strings.ToUpper(a.Country),
		Region:    a.Region,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		Zip:       a.Zip,
	}
}

// StatusChange records one status write for the caller.
type StatusChange struct {
	OrderID   uuid.UUID
	From      LocalStatus
	To        LocalStatus
	Outcome   Transition
	Source    string
	ChangedAt time.Time
}
