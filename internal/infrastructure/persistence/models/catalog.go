package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roastery/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the catalog Product.
// ExternalProductID is NULL for locally authored products.
type ProductModel struct {
	BaseModel
	Name              string          `gorm:"type:varchar(255);not null"`
	Description       string          `gorm:"type:text"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ImageURL          string          `gorm:"type:varchar(1024)"`
	Category          string          `gorm:"type:varchar(100);not null"`
	InStock           bool            `gorm:"not null"`
	ExternalProductID *string         `gorm:"type:varchar(64);uniqueIndex:idx_products_external_product_id,where:external_product_id IS NOT NULL"`
	ProviderSnapshot  *string         `gorm:"type:jsonb"`
	LastSyncedAt      *time.Time
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:        m.BaseModel.ToDomain(),
		Name:              m.Name,
		Description:       m.Description,
		Price:             m.Price,
		ImageURL:          m.ImageURL,
		Category:          m.Category,
		InStock:           m.InStock,
		ExternalProductID: derefString(m.ExternalProductID),
		ProviderSnapshot:  derefString(m.ProviderSnapshot),
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.ImageURL = p.ImageURL
	m.Category = p.Category
	m.InStock = p.InStock
	m.ExternalProductID = nullString(p.ExternalProductID)
	m.ProviderSnapshot = nullString(p.ProviderSnapshot)
	m.LastSyncedAt = p.LastSyncedAt
}

// SyncedColumns are the columns a provider sync may overwrite
var SyncedColumns = []string{
	"name", "description", "price", "image_url", "in_stock",
	"provider_snapshot", "last_synced_at", "updated_at",
}

// CatalogSyncRunModel is the persistence model for a catalog sync summary
type CatalogSyncRunModel struct {
	ID         uuid.UUID          `gorm:"type:uuid;primary_key"`
	Status     catalog.SyncStatus `gorm:"type:varchar(20);not null"`
	Total      int                `gorm:"not null;default:0"`
	Processed  int                `gorm:"not null;default:0"`
	Created    int                `gorm:"not null;default:0"`
	Updated    int                `gorm:"not null;default:0"`
	Failed     int                `gorm:"not null;default:0"`
	Failures   string             `gorm:"type:jsonb;not null"`
	StartedAt  time.Time          `gorm:"not null;index"`
	FinishedAt time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogSyncRunModel) TableName() string {
	return "catalog_sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun. Unreadable
// failure lists are dropped rather than failing the listing.
func (m *CatalogSyncRunModel) ToDomain() *catalog.SyncRun {
	run := &catalog.SyncRun{
		ID:         m.ID,
		Status:     m.Status,
		Total:      m.Total,
		Processed:  m.Processed,
		Created:    m.Created,
		Updated:    m.Updated,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	if m.Failures != "" {
		_ = json.Unmarshal([]byte(m.Failures), &run.Failures)
	}
	return run
}

// FromDomain populates the persistence model from a domain SyncRun
func (m *CatalogSyncRunModel) FromDomain(r *catalog.SyncRun) error {
	failures := r.Failures
	if failures == nil {
		failures = []catalog.SyncFailure{}
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return err
	}
	m.ID = r.ID
	m.Status = r.Status
	m.Total = r.Total
	m.Processed = r.Processed
	m.Created = r.Created
	m.Updated = r.Updated
	m.Failed = len(r.Failures)
	m.Failures = string(data)
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	return nil
}
