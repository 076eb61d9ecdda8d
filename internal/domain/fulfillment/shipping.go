package fulfillment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roastery/backend/internal/domain/provider"
)

// ShippingInfo is a shipment observed through polling or a webhook.
type ShippingInfo struct {
	Carrier        string
	Service        string
	TrackingNumber string
	TrackingURL    string
}

// ShippingInfoFromProvider converts a provider shipment.
func ShippingInfoFromProvider(s provider.Shipment) ShippingInfo {
	return ShippingInfo{
		Carrier:        s.Carrier,
		Service:        s.Service,
		TrackingNumber: s.TrackingNumber,
		TrackingURL:    s.TrackingURL,
	}
}

// ShippingRecord is a recorded shipment. Once stored, its values never change.
type ShippingRecord struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	Carrier        string    `json:"carrier"`
	Service        string    `json:"service,omitempty"`
	TrackingNumber string    `json:"tracking_number"`
	TrackingURL    string    `json:"tracking_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewShippingRecord validates info and creates a record for orderID.
func NewShippingRecord(orderID uuid.UUID, info ShippingInfo) (*ShippingRecord, error) {
	tracking := strings.TrimSpace(info.TrackingNumber)
	if tracking == "" {
		return nil, ErrTrackingNumberRequired
	}
	return &ShippingRecord{
		ID:             uuid.New(),
		OrderID:        orderID,
		Carrier:        strings.TrimSpace(info.Carrier),
		Service:        strings.TrimSpace(info.Service),
		TrackingNumber: tracking,
		TrackingURL:    strings.TrimSpace(info.TrackingURL),
		CreatedAt:      time.Now(),
	}, nil
}
