package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roastery/backend/internal/infrastructure/persistence/models"
)

// GormSettingsRepository implements provider.SettingsRepository on the
// app_settings key/value table
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// GetMany returns the stored values for keys. Missing keys are absent from the map.
func (r *GormSettingsRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}
	in := make([]any, len(keys))
	for i, k := range keys {
		in[i] = k
	}

	var rows []models.AppSettingModel
	err := r.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: "key"}, Values: in}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// Upsert writes every key in values
func (r *GormSettingsRepository) Upsert(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.AppSettingModel, 0, len(values))
	for k, v := range values {
		rows = append(rows, models.AppSettingModel{Key: k, Value: v, UpdatedAt: now})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rows).Error
}
