package models

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleUsuario           Role = "usuario"
	RoleLancheroPendiente Role = "lanchero_pendiente"
	RoleLanchero          Role = "lanchero"
	RoleAdmin             Role = "admin"
)

// ValidRequestedRoles are the roles a visitor may ask for at registration.
// lanchero requests are stored as lanchero_pendiente until an admin decides;
// admin is only ever assigned out-of-band.
func (r Role) ValidForRegistration() bool {
	return r == RoleUsuario || r == RoleLanchero
}

// Profile is the application-level row describing a member: contact info,
// role, and cumulative recycling stats. The row is keyed by the identity
// provider's account id; the provider remains the authority for credentials.
type Profile struct {
	ID           string  `json:"id" gorm:"primaryKey;size:255"`
	Name         string  `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Phone        string  `json:"phone" gorm:"uniqueIndex;not null;size:30"`
	Neighborhood string  `json:"neighborhood" gorm:"size:100"`
	Email        string  `json:"email" gorm:"not null;size:255"`
	Role         Role    `json:"role" gorm:"not null;size:30;default:usuario;index"`
	RecycledKg   float64 `json:"recycled_kg" gorm:"not null;default:0"`
	Minutes      int     `json:"minutes" gorm:"not null;default:0"`
	AvatarURL    *string `json:"avatar_url" gorm:"size:500"`

	// Collector application details (message + boat photo URL), present only
	// for profiles that registered as lanchero.
	Application datatypes.JSON `json:"application,omitempty"`

	BirthDate time.Time `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// CollectorApplication is the JSON payload stored in Profile.Application.
type CollectorApplication struct {
	Message  string `json:"message"`
	PhotoURL string `json:"photo_url"`
}
