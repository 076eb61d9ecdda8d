package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

// OrderModel is the persistence model for the fulfillment Order.
// ExternalFulfillmentID is NULL until the provider accepts the order.
type OrderModel struct {
	BaseModel
	Total                 decimal.Decimal         `gorm:"type:decimal(12,2);not null"`
	Status                fulfillment.LocalStatus `gorm:"type:varchar(20);not null;index"`
	ExternalFulfillmentID *string                 `gorm:"type:varchar(64);uniqueIndex"`
	Items                 []OrderItemModel        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *fulfillment.Order {
	items := make([]fulfillment.LineItem, len(m.Items))
	for i := range m.Items {
		items[i] = m.Items[i].ToDomain()
	}
	return &fulfillment.Order{
		BaseEntity:            m.BaseModel.ToDomain(),
		Total:                 m.Total,
		Status:                m.Status,
		ExternalFulfillmentID: derefString(m.ExternalFulfillmentID),
		LineItems:             items,
	}
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *fulfillment.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.Total = o.Total
	m.Status = o.Status
	m.ExternalFulfillmentID = nullString(o.ExternalFulfillmentID)
	m.Items = make([]OrderItemModel, len(o.LineItems))
	for i, li := range o.LineItems {
		m.Items[i].FromDomain(o.ID, i, li)
	}
}

// OrderItemModel is one line of an order. Position keeps the purchase order.
type OrderItemModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position          int             `gorm:"not null;default:0"`
	ProductID         uuid.UUID       `gorm:"type:uuid"`
	ProviderProductID *string         `gorm:"type:varchar(64)"`
	ProviderVariantID *int64          `gorm:"type:bigint"`
	Quantity          int             `gorm:"not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain LineItem
func (m *OrderItemModel) ToDomain() fulfillment.LineItem {
	li := fulfillment.LineItem{
		ID:                m.ID,
		ProductID:         m.ProductID,
		ProviderProductID: derefString(m.ProviderProductID),
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
	}
	if m.ProviderVariantID != nil {
		li.ProviderVariantID = *m.ProviderVariantID
	}
	return li
}

// FromDomain populates the persistence model from a domain LineItem
func (m *OrderItemModel) FromDomain(orderID uuid.UUID, position int, li fulfillment.LineItem) {
	m.ID = li.ID
	m.OrderID = orderID
	m.Position = position
	m.ProductID = li.ProductID
	m.ProviderProductID = nullString(li.ProviderProductID)
	if li.ProviderVariantID > 0 {
		v := li.ProviderVariantID
		m.ProviderVariantID = &v
	}
	m.Quantity = li.Quantity
	m.UnitPrice = li.UnitPrice
	m.CreatedAt = time.Now()
}

// ShippingRecordModel is the persistence model for a recorded shipment
type ShippingRecordModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shipping_order_tracking,priority:1"`
	Carrier        string    `gorm:"type:varchar(100)"`
	Service        string    `gorm:"type:varchar(100)"`
	TrackingNumber string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_shipping_order_tracking,priority:2"`
	TrackingURL    string    `gorm:"type:varchar(512)"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShippingRecordModel) TableName() string {
	return "shipping_records"
}

// ToDomain converts the persistence model to a domain ShippingRecord
func (m *ShippingRecordModel) ToDomain() *fulfillment.ShippingRecord {
	return &fulfillment.ShippingRecord{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Carrier:        m.Carrier,
		Service:        m.Service,
		TrackingNumber: m.TrackingNumber,
		TrackingURL:    m.TrackingURL,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain ShippingRecord
func (m *ShippingRecordModel) FromDomain(r *fulfillment.ShippingRecord) {
	m.ID = r.ID
	m.OrderID = r.OrderID
	m.Carrier = r.Carrier
	m.Service = r.Service
	m.TrackingNumber = r.TrackingNumber
	m.TrackingURL = r.TrackingURL
	m.CreatedAt = r.CreatedAt
}

// FulfillmentRecordModel is the submission audit row
type FulfillmentRecordModel struct {
	BaseModel
	OrderID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProviderOrderID string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	ProviderStatus  string    `gorm:"type:varchar(50)"`
	RequestPayload  *string   `gorm:"type:jsonb"`
	ResponsePayload *string   `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (FulfillmentRecordModel) TableName() string {
	return "fulfillment_orders"
}

// ToDomain converts the persistence model to a domain FulfillmentRecord
func (m *FulfillmentRecordModel) ToDomain() *fulfillment.FulfillmentRecord {
	r := &fulfillment.FulfillmentRecord{
		BaseEntity:      m.BaseModel.ToDomain(),
		OrderID:         m.OrderID,
		ProviderOrderID: m.ProviderOrderID,
		ProviderStatus:  m.ProviderStatus,
	}
	if m.RequestPayload != nil {
		r.RequestPayload = json.RawMessage(*m.RequestPayload)
	}
	if m.ResponsePayload != nil {
		r.ResponsePayload = json.RawMessage(*m.ResponsePayload)
	}
	return r
}

// FromDomain populates the persistence model from a domain FulfillmentRecord
func (m *FulfillmentRecordModel) FromDomain(r *fulfillment.FulfillmentRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.OrderID = r.OrderID
	m.ProviderOrderID = r.ProviderOrderID
	m.ProviderStatus = r.ProviderStatus
	m.RequestPayload = nullString(string(r.RequestPayload))
	m.ResponsePayload = nullString(string(r.ResponsePayload))
}
