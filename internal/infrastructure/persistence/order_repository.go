package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM.
// Status and external id writes are conditional updates; the row count tells
// the caller whether its write won.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds an order with its line items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalFulfillmentID finds the order the provider knows by externalID
func (r *GormOrderRepository) FindByExternalFulfillmentID(ctx context.Context, externalID string) (*fulfillment.Order, error) {
	if externalID == "" {
		return nil, fulfillment.ErrOrderNotFound
	}
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		First(&model, "external_fulfillment_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates an order and its line items in one transaction
func (r *GormOrderRepository) Save(ctx context.Context, order *fulfillment.Order) error {
	model := &models.OrderModel{}
	model.FromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(model).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if len(model.Items) == 0 {
			return nil
		}
		if err := tx.Create(&model.Items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		return nil
	})
}

// AssignExternalFulfillmentID sets the external id only while it is unset
func (r *GormOrderRepository) AssignExternalFulfillmentID(ctx context.Context, id uuid.UUID, externalID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND (external_fulfillment_id IS NULL OR external_fulfillment_id = '')", id).
		Updates(map[string]any{
			"external_fulfillment_id": externalID,
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// TransitionStatus writes to only while the stored status is one of from
func (r *GormOrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to fulfillment.LocalStatus, from []fulfillment.LocalStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
