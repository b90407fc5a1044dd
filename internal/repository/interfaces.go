package repository

import (
	"context"

	"otaflow/internal/models"
)

// AppRepository defines read access to registered apps
type AppRepository interface {
	// GetByAppID returns an app by its reverse-domain app id, with owning org
	GetByAppID(ctx context.Context, appID string) (*models.App, error)
}

// OrgRepository defines the plan/limit checks the resolver consults
type OrgRepository interface {
	// UpdatesAllowed reports whether the org's plan still permits updates
	UpdatesAllowed(ctx context.Context, orgID uint) (bool, error)
}

// ResolutionData is everything the resolver needs to pick a bundle for one
// device, loaded in a single batched read.
type ResolutionData struct {
	// DeviceOverride pins the device to a bundle; highest precedence
	DeviceOverride *models.DeviceVersionOverride
	// ChannelOverride pins the device to a channel
	ChannelOverride *models.ChannelDeviceOverride
	// DefaultChannel is the app's public channel
	DefaultChannel *models.Channel
}

// ResolutionRepository loads the override/channel state for one check-in
type ResolutionRepository interface {
	Load(ctx context.Context, appID, deviceID string) (*ResolutionData, error)
}

// DeviceRepository persists last-seen device state
type DeviceRepository interface {
	// Upsert inserts or replaces the device row keyed by (app_id, device_id)
	Upsert(ctx context.Context, device *models.Device) error
}

// StatsRepository persists check-in outcome telemetry
type StatsRepository interface {
	Create(ctx context.Context, event *models.StatEvent) error
}
