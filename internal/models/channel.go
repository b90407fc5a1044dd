package models

import "time"

// Auto-update policy values for Channel.DisableAutoUpdate.
const (
	AutoUpdateNone          = "none"
	AutoUpdateMajor         = "major"
	AutoUpdateMinor         = "minor"
	AutoUpdatePatch         = "patch"
	AutoUpdateVersionNumber = "version_number"
)

// Channel binds a bundle to a rollout policy. Exactly one channel per app is
// public; that one is the default for devices without an override.
type Channel struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AppID  string `gorm:"size:128;index;not null"`
	Name   string `gorm:"size:64;not null"`
	Public bool   `gorm:"default:false;index"`

	BundleID uint   `gorm:"not null"`
	Bundle   Bundle `gorm:"foreignKey:BundleID"`

	// Staged rollout: when A/B testing or progressive deploy is enabled a
	// percentage of eligible requests is served SecondBundle instead.
	SecondBundleID             *uint
	SecondBundle               *Bundle `gorm:"foreignKey:SecondBundleID"`
	SecondaryVersionPercentage float64 `gorm:"default:0"`
	EnableABTesting            bool    `gorm:"default:false"`
	EnableProgressiveDeploy    bool    `gorm:"default:false"`

	// Platform gates
	IOS     bool `gorm:"default:true"`
	Android bool `gorm:"default:true"`

	// Policy flags
	DisableAutoUpdate            string `gorm:"size:32;default:major"`
	DisableAutoUpdateUnderNative bool   `gorm:"default:true"`
	AllowDev                     bool   `gorm:"default:true"`
	AllowEmulator                bool   `gorm:"default:true"`
	// AllowDeviceSelfSet is enforced by the control plane when a device asks
	// to join a channel; resolution never reads it.
	AllowDeviceSelfSet bool `gorm:"default:false"`
}
