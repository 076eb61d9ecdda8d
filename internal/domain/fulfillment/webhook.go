package fulfillment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WebhookEventType is the type tag of a provider push notification.
type WebhookEventType string

const (
	EventOrderCreated   WebhookEventType = "order:created"
	EventOrderUpdated   WebhookEventType = "order:updated"
	EventOrderFulfilled WebhookEventType = "order:fulfilled"
	EventOrderCanceled  WebhookEventType = "order:canceled"
)

// IsKnown reports whether the event type carries order state.
func (t WebhookEventType) IsKnown() bool {
	switch t {
	case EventOrderCreated, EventOrderUpdated, EventOrderFulfilled, EventOrderCanceled:
		return true
	}
	return false
}

// WebhookShipment is a shipment inside a webhook payload. The provider has
// used both number/url and tracking_number/tracking_url field names.
type WebhookShipment struct {
	Carrier        string `json:"carrier"`
	Service        string `json:"service"`
	TrackingNumber string `json:"tracking_number"`
	Number         string `json:"number"`
	TrackingURL    string `json:"tracking_url"`
	URL            string `json:"url"`
}

// ToShippingInfo normalises the alternate field names.
func (s WebhookShipment) ToShippingInfo() ShippingInfo {
	info := ShippingInfo{
		Carrier:        s.Carrier,
		Service:        s.Service,
		TrackingNumber: s.TrackingNumber,
		TrackingURL:    s.TrackingURL,
	}
	if info.TrackingNumber == "" {
		info.TrackingNumber = s.Number
	}
	if info.TrackingURL == "" {
		info.TrackingURL = s.URL
	}
	return info
}

// WebhookEventData is the order snapshot carried by an event.
type WebhookEventData struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	ExternalID string            `json:"external_id"`
	Shipments  []WebhookShipment `json:"shipments"`
}

// WebhookEvent is a provider push notification:
// {id, type, created_at, data: {id, status, external_id, shipments[]}}.
type WebhookEvent struct {
	ID        string           `json:"id"`
	Type      WebhookEventType `json:"type"`
	CreatedAt string           `json:"created_at"`
	Data      WebhookEventData `json:"data"`
}

// ParseWebhookEvent decodes and validates a raw event body.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	event.Type = WebhookEventType(strings.ToLower(strings.TrimSpace(string(event.Type))))
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidWebhookPayload)
	}
	if strings.TrimSpace(event.Data.ID) == "" && strings.TrimSpace(event.Data.ExternalID) == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrInvalidWebhookPayload)
	}
	return &event, nil
}

// TargetStatus returns the provider status the event asserts.
// Fulfilled events without a status imply shipped; canceled events always
// mean canceled.
func (e *WebhookEvent) TargetStatus() string {
	switch e.Type {
	case EventOrderCanceled:
		return ProviderStatusCanceled
	case EventOrderFulfilled:
		if strings.TrimSpace(e.Data.Status) == "" {
			return ProviderStatusFulfilled
		}
	}
	return e.Data.Status
}

// ShippingInfos returns the event's shipments in local form.
func (e *WebhookEvent) ShippingInfos() []ShippingInfo {
	infos := make([]ShippingInfo, 0, len(e.Data.Shipments))
	for _, s := range e.Data.Shipments {
		infos = append(infos, s.ToShippingInfo())
	}
	return infos
}
