package repository

import (
	"context"
	"errors"

	"otaflow/internal/models"

	"gorm.io/gorm"
)

type resolutionRepository struct {
	db *gorm.DB
}

// NewResolutionRepository creates the batched per-request reader
func NewResolutionRepository(db *gorm.DB) ResolutionRepository {
	return &resolutionRepository{db: db}
}

// Load fetches the device-version override, the channel-device override and
// the default public channel for one (app, device) pair. Absent rows are nil,
// not errors; the resolver decides what a fully empty result means.
func (r *resolutionRepository) Load(ctx context.Context, appID, deviceID string) (*ResolutionData, error) {
	data := &ResolutionData{}

	var deviceOverride models.DeviceVersionOverride
	err := r.db.WithContext(ctx).
		Preload("Bundle").
		Where("app_id = ? AND device_id = ?", appID, deviceID).
		First(&deviceOverride).Error
	switch {
	case err == nil:
		data.DeviceOverride = &deviceOverride
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var channelOverride models.ChannelDeviceOverride
	err = r.db.WithContext(ctx).
		Preload("Channel").
		Preload("Channel.Bundle").
		Preload("Channel.SecondBundle").
		Where("app_id = ? AND device_id = ?", appID, deviceID).
		First(&channelOverride).Error
	switch {
	case err == nil:
		data.ChannelOverride = &channelOverride
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var defaultChannel models.Channel
	err = r.db.WithContext(ctx).
		Preload("Bundle").
		Preload("SecondBundle").
		Where("app_id = ? AND public = ?", appID, true).
		First(&defaultChannel).Error
	switch {
	case err == nil:
		data.DefaultChannel = &defaultChannel
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return data, nil
}
