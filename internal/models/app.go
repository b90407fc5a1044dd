package models

import "time"

// Org owns apps and carries the billing state the resolver consults
// before handing out an update.
type Org struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name       string `gorm:"size:128;not null"`
	CreatedBy  string `gorm:"size:128"`
	IsPaying   bool   `gorm:"default:false"`
	IsGoodPlan bool   `gorm:"default:true"`
}

// App is a registered application, identified by its reverse-domain app id.
// Read-only from the resolver's point of view.
type App struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AppID string `gorm:"size:128;uniqueIndex;not null"` // e.g. com.demo.app
	Name  string `gorm:"size:128"`
	OrgID uint   `gorm:"index;not null"`
	Org   Org    `gorm:"foreignKey:OrgID"`
}
