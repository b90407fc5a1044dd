package models

import "time"

// Device is the last-seen state of an installed client, upserted on every
// check-in.
type Device struct {
	AppID    string `gorm:"size:128;primaryKey"`
	DeviceID string `gorm:"size:64;primaryKey"`

	Platform      string `gorm:"size:16"`
	PluginVersion string `gorm:"size:32"`
	OSVersion     string `gorm:"size:32"`
	VersionBuild  string `gorm:"size:64"`
	BundleID      uint   // installed bundle, when known
	CustomID      string `gorm:"size:64"`
	IsEmulator    bool
	IsProd        bool `gorm:"default:true"`

	UpdatedAt time.Time
}
