package services

import (
	"context"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type ProfileUpdateRequest = validator.ProfileUpdateRequest
type ReportCreateRequest = validator.ReportCreateRequest
type ProcessApplicationRequest = validator.ProcessApplicationRequest

// Upload is a file received with a form submission.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type RegisterResult struct {
	Email       string `json:"email"`
	RedirectURL string `json:"redirect"`
}

// VerifyResult reports the outcome of a successful code exchange. Pending
// collectors get no session token; their application still awaits review.
type VerifyResult struct {
	Pending     bool   `json:"pending"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect"`
}

type LoginResult struct {
	Token       string `json:"token"`
	Role        string `json:"role"`
	RedirectURL string `json:"redirect"`
}

type ApplicationListResponse struct {
	Applications []*models.Profile `json:"solicitudes"`
	Total        int64             `json:"total"`
}

type PendingReportsResponse struct {
	Reports []*models.PendingReport `json:"reportes"`
	Total   int64                   `json:"total"`
}

// ===== SERVICE INTERFACES =====

// RegistrationService runs the registration, verification and credential
// flows against the identity provider.
type RegistrationService interface {
	Register(ctx context.Context, req *RegisterRequest, photo *Upload) (*RegisterResult, error)
	Verify(ctx context.Context, email, code string) (*VerifyResult, error)
	ResendCode(ctx context.Context, email string) error
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// SessionManager issues and parses the signed session tokens carried by
// authenticated requests.
type SessionManager interface {
	Issue(accountID string) (string, error)
	Parse(token string) (string, error)
}

// RoleGateService decides whether the holder of a session may reach a
// role-protected surface. Every call re-reads the profile; decisions are
// never cached.
type RoleGateService interface {
	Authorize(ctx context.Context, accountID string, required models.Role) error
}

type ProfileService interface {
	Get(ctx context.Context, accountID string) (*models.Profile, error)
	Update(ctx context.Context, accountID string, req *ProfileUpdateRequest) (*models.Profile, error)
	UploadAvatar(ctx context.Context, accountID string, photo *Upload) (string, error)
	DeleteAccount(ctx context.Context, accountID string) error

	Summary(ctx context.Context, accountID string) (*models.ProfileSummary, error)
	WeeklyProgress(ctx context.Context, accountID string) ([]models.DailyProgress, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type ReportService interface {
	Submit(ctx context.Context, accountID string, req *ReportCreateRequest, photo *Upload) (*models.PickupReport, error)
	ListPending(ctx context.Context) (*PendingReportsResponse, error)
	MarkCollected(ctx context.Context, reportID uint, collectorID string) error
}

// ApplicationService is the admin review surface for collector applications.
type ApplicationService interface {
	ListApplications(ctx context.Context) (*ApplicationListResponse, error)
	Process(ctx context.Context, adminID string, req *ProcessApplicationRequest) error

	ExportApplications(ctx context.Context) ([]byte, error)
	ExportLeaderboard(ctx context.Context, limit int) ([]byte, error)
}

// ===== SERVICE MANAGER =====

// ServiceManager provides access to all services
type ServiceManager interface {
	Registration() RegistrationService
	Sessions() SessionManager
	RoleGate() RoleGateService
	Profile() ProfileService
	Report() ReportService
	Application() ApplicationService

	// Lifecycle methods
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
