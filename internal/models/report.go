package models

import (
	"time"
)

// PickupReport is a user-submitted record of recyclable waste waiting for a
// collector. Once a lanchero marks it collected the row is immutable and the
// reported kilograms have been credited to the owner's profile.
type PickupReport struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"not null;size:255;index"`
	ReportedKg  float64    `json:"reported_kg" gorm:"not null"`
	Location    string     `json:"location" gorm:"size:500"`
	PhotoURL    string     `json:"photo_url" gorm:"size:500"`
	Collected   bool       `json:"collected" gorm:"not null;default:false;index"`
	CollectedBy *string    `json:"collected_by,omitempty" gorm:"size:255"`
	CollectedAt *time.Time `json:"collected_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Profile *Profile `json:"profile,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (PickupReport) TableName() string {
	return "pickup_reports"
}

// PendingReport is the listing shape handed to collectors: the report plus
// the reporter's name and neighborhood.
type PendingReport struct {
	PickupReport
	ReporterName         string `json:"reporter_name"`
	ReporterNeighborhood string `json:"reporter_neighborhood"`
}
