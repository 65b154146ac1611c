package models

import (
	"time"
)

// Account is the identity-provider-held credential record. Credentials and
// verification state live in the provider; the metadata bag carries the
// registration fields until the Profile row is created at verification time.
type Account struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	EmailVerified bool              `json:"email_verified"`
	Metadata      map[string]string `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Metadata bag keys written at registration and read back at verification.
const (
	MetaName         = "nombre"
	MetaPhone        = "telefono"
	MetaNeighborhood = "barrio"
	MetaBirthDate    = "fecha_nac"
	MetaRole         = "rol"
	MetaMessage      = "mensaje_lanchero"
	MetaPhotoURL     = "foto_lancha_url"
)

// StoredObject is a blob held in the media store: uploaded photos for
// collector applications, avatars and pickup reports. Objects are public and
// addressed as /media/<bucket>/<path>.
type StoredObject struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Bucket      string    `json:"bucket" gorm:"not null;size:100;uniqueIndex:idx_bucket_path"`
	Path        string    `json:"path" gorm:"not null;size:500;uniqueIndex:idx_bucket_path"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	Data        []byte    `json:"-" gorm:"type:bytea"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (StoredObject) TableName() string {
	return "stored_objects"
}

// Buckets used by the application.
const (
	BucketBoatPhotos   = "lanchas_fotos"
	BucketAvatars      = "avatars"
	BucketReportPhotos = "reportes_fotos"
)
