package repository

import (
	"context"

	"otaflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new device repository backed by gorm
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Upsert(ctx context.Context, device *models.Device) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_id"}, {Name: "device_id"}},
			UpdateAll: true,
		}).
		Create(device).Error
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository backed by gorm
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Create(ctx context.Context, event *models.StatEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
