package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// GormShippingRecordRepository implements fulfillment.ShippingRecordRepository
// using GORM. The (order_id, tracking_number) unique index decides which
// writer records a shipment.
type GormShippingRecordRepository struct {
	db *gorm.DB
}

// NewGormShippingRecordRepository creates a new GormShippingRecordRepository
func NewGormShippingRecordRepository(db *gorm.DB) *GormShippingRecordRepository {
	return &GormShippingRecordRepository{db: db}
}

// FindByOrderAndTracking finds a shipment by its natural key
func (r *GormShippingRecordRepository) FindByOrderAndTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*fulfillment.ShippingRecord, error) {
	var model models.ShippingRecordModel
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND tracking_number = ?", orderID, trackingNumber).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrShippingRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// InsertIfAbsent inserts the record unless its key already exists
func (r *GormShippingRecordRepository) InsertIfAbsent(ctx context.Context, record *fulfillment.ShippingRecord) (bool, error) {
	model := &models.ShippingRecordModel{}
	model.FromDomain(record)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "tracking_number"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByOrder returns an order's shipments, oldest first
func (r *GormShippingRecordRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfillment.ShippingRecord, error) {
	var rows []models.ShippingRecordModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]fulfillment.ShippingRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}
