package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// GormFulfillmentRecordRepository implements fulfillment.FulfillmentRecordRepository using GORM
type GormFulfillmentRecordRepository struct {
	db *gorm.DB
}

// NewGormFulfillmentRecordRepository creates a new GormFulfillmentRecordRepository
func NewGormFulfillmentRecordRepository(db *gorm.DB) *GormFulfillmentRecordRepository {
	return &GormFulfillmentRecordRepository{db: db}
}

// Save inserts the audit record. A second record for the same order is ignored.
func (r *GormFulfillmentRecordRepository) Save(ctx context.Context, record *fulfillment.FulfillmentRecord) error {
	model := &models.FulfillmentRecordModel{}
	model.FromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(model).Error
}

// FindByOrderID finds the audit record of an order
func (r *GormFulfillmentRecordRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*fulfillment.FulfillmentRecord, error) {
	var model models.FulfillmentRecordModel
	if err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateProviderStatus stores the last provider status seen for providerOrderID
func (r *GormFulfillmentRecordRepository) UpdateProviderStatus(ctx context.Context, providerOrderID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.FulfillmentRecordModel{}).
		Where("provider_order_id = ?", providerOrderID).
		Updates(map[string]any{
			"provider_status": status,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fulfillment.ErrRecordNotFound
	}
	return nil
}
