package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/roastery/backend/internal/domain/catalog"
	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements catalog.SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save stores a finished run
func (r *GormSyncRunRepository) Save(ctx context.Context, run *catalog.SyncRun) error {
	model := &models.CatalogSyncRunModel{}
	if err := model.FromDomain(run); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// ListRecent returns up to limit runs, newest first
func (r *GormSyncRunRepository) ListRecent(ctx context.Context, limit int) ([]catalog.SyncRun, error) {
	var rows []models.CatalogSyncRunModel
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	runs := make([]catalog.SyncRun, len(rows))
	for i := range rows {
		runs[i] = *rows[i].ToDomain()
	}
	return runs, nil
}
