package models

import "time"

// StatEvent records one check-in outcome. Written asynchronously, never read
// by the resolver.
type StatEvent struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	AppID        string `gorm:"size:128;index;not null"`
	DeviceID     string `gorm:"size:64;index"`
	Action       string `gorm:"size:64;not null"` // outcome tag
	Platform     string `gorm:"size:16"`
	VersionBuild string `gorm:"size:64"`
	BundleID     uint   // resolved bundle, when one was resolved
}
