package models

import "time"

// ChannelDeviceOverride pins a single device to a channel, superseding the
// app's default public channel.
type ChannelDeviceOverride struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AppID    string `gorm:"size:128;uniqueIndex:uniq_channel_device;not null"`
	DeviceID string `gorm:"size:64;uniqueIndex:uniq_channel_device;not null"`

	ChannelID uint    `gorm:"not null"`
	Channel   Channel `gorm:"foreignKey:ChannelID"`
}

// DeviceVersionOverride pins a single device directly to a bundle, bypassing
// all channel policy. Highest precedence.
type DeviceVersionOverride struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AppID    string `gorm:"size:128;uniqueIndex:uniq_version_device;not null"`
	DeviceID string `gorm:"size:64;uniqueIndex:uniq_version_device;not null"`

	BundleID uint   `gorm:"not null"`
	Bundle   Bundle `gorm:"foreignKey:BundleID"`
}
