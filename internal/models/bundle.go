package models

import "time"

// Bundle is a versioned application asset package. Its name is a semantic
// version string. It carries either a storage reference (bucket/path) or an
// external URL, never both. Immutable once referenced by a channel except for
// the deleted flag and storage migration fields.
type Bundle struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AppID string `gorm:"size:128;index;uniqueIndex:uniq_app_bundle;not null"`
	Name  string `gorm:"size:64;uniqueIndex:uniq_app_bundle;not null"`

	BucketID        string `gorm:"size:256"`
	StoragePath     string `gorm:"size:512"`
	StorageProvider string `gorm:"size:32;default:r2"`
	ExternalURL     string `gorm:"size:512"`

	Checksum         string `gorm:"size:64"`
	SessionKey       string `gorm:"size:256"` // encryption metadata, optional
	MinUpdateVersion string `gorm:"size:64"`  // used by version_number update policy

	Deleted bool `gorm:"default:false"`
}
