package persistence

import (
	"gorm.io/gorm"

	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// AllModels lists every table owned by this service, parents first
func AllModels() []any {
	return []any{
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.ShippingRecordModel{},
		&models.FulfillmentRecordModel{},
		&models.ProductModel{},
		&models.CatalogSyncRunModel{},
		&models.AppSettingModel{},
	}
}

// AutoMigrate creates or updates all tables with GORM's migrator
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
