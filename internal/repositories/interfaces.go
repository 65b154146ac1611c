package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ProfileFilters struct {
	Role      *models.Role `json:"role"`
	Limit     int          `json:"limit"`
	Offset    int          `json:"offset"`
	SortBy    string       `json:"sort_by"`    // "created_at", "name", "recycled_kg"
	SortOrder string       `json:"sort_order"` // "asc", "desc"
}

type ReportFilters struct {
	Collected *bool      `json:"collected"`
	UserID    *string    `json:"user_id"`
	DateFrom  *time.Time `json:"date_from"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== PROFILE STORE =====

// ProfileRepository is the Profile Store: one row per verified account.
// Name and phone uniqueness is backed by unique indexes; implementations
// report duplicate-key violations as ErrDuplicateKey so callers can map them
// to a conflict.
type ProfileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByName(ctx context.Context, name string) (*models.Profile, error)
	// ResolveEmail maps a login identifier (phone or name) to the account
	// email, mirroring the identifier-based login flow.
	ResolveEmail(ctx context.Context, identifier string) (string, error)

	Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]interface{}) error
	UpdateRole(ctx context.Context, tx *gorm.DB, id string, role models.Role) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error)

	ListByRole(ctx context.Context, role models.Role, filters ProfileFilters) ([]*models.Profile, int64, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	// AddRecycledKg atomically credits collected kilograms to a profile.
	AddRecycledKg(ctx context.Context, tx *gorm.DB, id string, kg float64) error
}

// ===== PICKUP REPORTS =====

type ReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, report *models.PickupReport) error
	GetByID(ctx context.Context, id uint) (*models.PickupReport, error)
	ListPending(ctx context.Context, filters ReportFilters) ([]*models.PendingReport, int64, error)
	ListByUser(ctx context.Context, userID string, filters ReportFilters) ([]*models.PickupReport, error)

	// MarkCollected flips the collected flag exactly once. The returned bool
	// reports whether this call performed the flip; a false result with nil
	// error means the report was already collected.
	MarkCollected(ctx context.Context, tx *gorm.DB, reportID uint, collectorID string) (bool, error)

	// CollectedSince returns the caller's collected reports created after the
	// cutoff, for progress charts.
	CollectedSince(ctx context.Context, userID string, since time.Time) ([]*models.PickupReport, error)

	DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error
}

// ===== BLOB STORE =====

// BlobRepository stores uploaded images and hands back public URLs.
type BlobRepository interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte, upsert bool) (string, error)
	Get(ctx context.Context, bucket, path string) (*models.StoredObject, error)
	Delete(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
}

// ===== IDENTITY PROVIDER =====

// CodePurpose distinguishes the one-time-code flows the provider runs.
type CodePurpose string

const (
	CodePurposeSignup        CodePurpose = "signup"
	CodePurposePasswordReset CodePurpose = "password_reset"
)

// AccountRepository is the identity provider boundary: credentials,
// verification codes and account metadata live behind it.
type AccountRepository interface {
	Create(ctx context.Context, email, password string, metadata map[string]string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, int64, error)

	// VerifyPassword checks credentials and returns the account on success.
	VerifyPassword(ctx context.Context, email, password string) (*models.Account, error)

	// IssueCode generates a one-time code for the given purpose and delivers
	// it out-of-band to the account email.
	IssueCode(ctx context.Context, email string, purpose CodePurpose) error

	// VerifyCode consumes a previously issued code. For signup codes the
	// account is marked verified as a side effect.
	VerifyCode(ctx context.Context, email, code string, purpose CodePurpose) (*models.Account, error)

	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, email, newPassword string) error
	Delete(ctx context.Context, id string) error
}

// ===== AGGREGATE =====

// Repository bundles the stores the services depend on.
type Repository interface {
	Profile() ProfileRepository
	Report() ReportRepository
	Blob() BlobRepository
	Account() AccountRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
