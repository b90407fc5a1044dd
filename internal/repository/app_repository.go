package repository

import (
	"context"

	"otaflow/internal/models"

	"gorm.io/gorm"
)

type appRepository struct {
	db *gorm.DB
}

// NewAppRepository creates a new app repository backed by gorm
func NewAppRepository(db *gorm.DB) AppRepository {
	return &appRepository{db: db}
}

func (r *appRepository) GetByAppID(ctx context.Context, appID string) (*models.App, error) {
	var app models.App
	err := r.db.WithContext(ctx).
		Preload("Org").
		Where("app_id = ?", appID).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

type orgRepository struct {
	db *gorm.DB
}

// NewOrgRepository creates a new org repository backed by gorm
func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &orgRepository{db: db}
}

// UpdatesAllowed mirrors the billing service's "allowed action" check: an org
// can keep shipping updates while it pays or while its plan covers usage.
func (r *orgRepository) UpdatesAllowed(ctx context.Context, orgID uint) (bool, error) {
	var org models.Org
	if err := r.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		return false, err
	}
	return org.IsGoodPlan || org.IsPaying, nil
}
