package models

import "time"

// AppSettingModel is one operator-editable key/value setting
type AppSettingModel struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AppSettingModel) TableName() string {
	return "app_settings"
}
