package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ---------------------------------------------------------------------------
// Provider Errors
// ---------------------------------------------------------------------------

var (
	// Configuration errors
	ErrCredentialsMissing = errors.New("provider: fulfillment provider credentials not configured")

	// Transport errors
	ErrProviderUnavailable     = errors.New("provider: fulfillment provider temporarily unavailable")
	ErrProviderRequestFailed   = errors.New("provider: fulfillment provider request failed")
	ErrProviderInvalidResponse = errors.New("provider: invalid fulfillment provider response")
	ErrProviderRateLimited     = errors.New("provider: fulfillment provider rate limited")
	ErrProviderAuthFailed      = errors.New("provider: fulfillment provider authentication failed")

	// Resource errors
	ErrProviderOrderNotFound   = errors.New("provider: order not found at fulfillment provider")
	ErrProviderProductNotFound = errors.New("provider: product not found at fulfillment provider")
)

// IsTransportError reports whether err came from talking to the provider rather
// than from local state. Callers decide on retry.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderRequestFailed) ||
		errors.Is(err, ErrProviderInvalidResponse) ||
		errors.Is(err, ErrProviderRateLimited) ||
		errors.Is(err, ErrProviderAuthFailed)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials authenticates one call against the provider.
type Credentials struct {
	APIKey string
	ShopID string
}

// Validate returns ErrCredentialsMissing when either value is blank.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.Join(ErrCredentialsMissing, errors.New("api key is empty"))
	}
	if strings.TrimSpace(c.ShopID) == "" {
		return errors.Join(ErrCredentialsMissing, errors.New("shop id is empty"))
	}
	return nil
}

// CredentialsSource loads credentials fresh for every operation so that a
// rotated key is picked up without a restart.
type CredentialsSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a CredentialsSource that always returns the same values.
type StaticCredentials Credentials

// Credentials implements CredentialsSource
func (s StaticCredentials) Credentials(_ context.Context) (Credentials, error) {
	creds := Credentials(s)
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// DefaultShippingMethod is the provider's standard shipping tier.
const DefaultShippingMethod = 1

// Address is the destination block of a provider order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

// OrderLineItem is one provider product variant in an order request.
type OrderLineItem struct {
	ProductID string `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest is the payload sent to the provider to open a fulfillment order.
type CreateOrderRequest struct {
	ExternalID               string          `json:"external_id"`
	Label                    string          `json:"label,omitempty"`
	LineItems                []OrderLineItem `json:"line_items"`
	ShippingMethod           int             `json:"shipping_method"`
	SendShippingNotification bool            `json:"send_shipping_notification"`
	AddressTo                Address         `json:"address_to"`
}

// Shipment is a carrier shipment reported by the provider.
type Shipment struct {
	Carrier        string
	Service        string
	TrackingNumber string
	TrackingURL    string
}

// Order is the provider's view of a fulfillment order.
type Order struct {
	ID         string
	ExternalID string
	Status     string
	Shipments  []Shipment
	Raw        json.RawMessage
}

// FulfillmentProvider is the port for the provider's order endpoints.
// Every call takes explicit credentials and must respect ctx deadlines.
type FulfillmentProvider interface {
	CreateOrder(ctx context.Context, creds Credentials, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, creds Credentials, providerOrderID string) (*Order, error)
	CancelOrder(ctx context.Context, creds Credentials, providerOrderID string) (*Order, error)
	GetShipments(ctx context.Context, creds Credentials, providerOrderID string) ([]Shipment, error)
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ProductImage is an image attached to a provider product.
type ProductImage struct {
	Src       string
	IsDefault bool
}

// ProductVariant is a sellable variant; Price is in minor currency units.
type ProductVariant struct {
	ID        int64
	Title     string
	Price     int64
	IsEnabled bool
}

// Product is a provider product listing.
type Product struct {
	ID          string
	Title       string
	Description string
	Visible     bool
	Images      []ProductImage
	Variants    []ProductVariant
	Raw         json.RawMessage

	// DecodeErr is set when the listing could not be decoded. Only ID and Raw
	// are reliable in that case.
	DecodeErr error
}

// CatalogProvider is the port for the provider's product endpoints.
type CatalogProvider interface {
	ListProducts(ctx context.Context, creds Credentials) ([]Product, error)
	GetProduct(ctx context.Context, creds Credentials, providerProductID string) (*Product, error)
}
