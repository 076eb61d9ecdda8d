package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roastery/backend/internal/domain/catalog"
	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements catalog.ProductRepository using GORM.
// Sync writes touch only provider-owned columns so local edits survive.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its local id
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds the product imported from externalID
func (r *GormProductRepository) FindByExternalID(ctx context.Context, externalID string) (*catalog.Product, error) {
	if externalID == "" {
		return nil, catalog.ErrProductNotFound
	}
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "external_product_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateSynced inserts an imported product, or updates the provider-owned
// columns of the row that already holds the same external id.
func (r *GormProductRepository) CreateSynced(ctx context.Context, product *catalog.Product) error {
	if !product.IsExternal() {
		return catalog.ErrMissingExternalID
	}
	model := &models.ProductModel{}
	model.FromDomain(product)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_product_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "external_product_id IS NOT NULL"},
			}},
			DoUpdates: clause.AssignmentColumns(models.SyncedColumns),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	var stored models.ProductModel
	if err := r.db.WithContext(ctx).
		Select("id", "created_at").
		First(&stored, "external_product_id = ?", product.ExternalProductID).Error; err != nil {
		return fmt.Errorf("failed to read back product: %w", err)
	}
	product.ID = stored.ID
	product.CreatedAt = stored.CreatedAt
	return nil
}

// UpdateSynced writes the provider-owned columns of an existing product
func (r *GormProductRepository) UpdateSynced(ctx context.Context, product *catalog.Product) error {
	model := &models.ProductModel{}
	model.FromDomain(product)

	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", product.ID).
		Select(models.SyncedColumns).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}
