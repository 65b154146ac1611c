package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/events"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

type registrationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	sessions  SessionManager
	publisher events.EventPublisher
	minAge    int
}

func NewRegistrationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, sessions SessionManager, publisher events.EventPublisher, minAge int) RegistrationService {
	return &registrationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		sessions:  sessions,
		publisher: publisher,
		minAge:    minAge,
	}
}

// ===== REGISTRATION =====

func (s *registrationService) Register(ctx context.Context, req *RegisterRequest, photo *Upload) (*RegisterResult, error) {
	normalizeRegisterRequest(req)

	birthDate, issue := s.validator.GetBusinessValidator().ValidateRegistration(req, photo != nil, s.minAge, time.Now())
	if issue != nil {
		return nil, NewValidationError(issue.Message)
	}

	// Friendly pre-checks; the unique indexes on profiles close the race.
	taken, err := s.repo.Profile().ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, fmt.Errorf("name lookup failed: %w", err)
	}
	if taken {
		return nil, NewConflictError("Este nombre de usuario ya está en uso. Por favor, elige otro.")
	}
	taken, err = s.repo.Profile().ExistsByPhone(ctx, req.Phone, "")
	if err != nil {
		return nil, fmt.Errorf("phone lookup failed: %w", err)
	}
	if taken {
		return nil, NewConflictError("Este número de teléfono ya está registrado.")
	}

	role := models.RoleUsuario
	photoURL := ""
	if req.Role == string(models.RoleLanchero) {
		role = models.RoleLancheroPendiente

		path := fmt.Sprintf("solicitud_%s_%d.%s", req.Phone, time.Now().Unix(), fileExt(photo.Filename))
		photoURL, err = s.repo.Blob().Upload(ctx, models.BucketBoatPhotos, path, photo.ContentType, photo.Data, false)
		if err != nil {
			return nil, NewExternalServiceError("blob-store", "upload boat photo", err)
		}
	}

	metadata := map[string]string{
		models.MetaName:         req.Name,
		models.MetaPhone:        req.Phone,
		models.MetaNeighborhood: req.Neighborhood,
		models.MetaBirthDate:    birthDate.Format("2006-01-02"),
		models.MetaRole:         string(role),
	}
	if role == models.RoleLancheroPendiente {
		metadata[models.MetaMessage] = req.Message
		metadata[models.MetaPhotoURL] = photoURL
	}

	if _, err := s.repo.Account().Create(ctx, req.Email, req.Password, metadata); err != nil {
		if errors.Is(err, repositories.ErrAlreadyRegistered) {
			return nil, NewConflictError("Este correo electrónico ya está registrado.")
		}
		return nil, NewExternalServiceError("identity-provider", "create account", err)
	}

	if err := s.repo.Account().IssueCode(ctx, req.Email, repositories.CodePurposeSignup); err != nil {
		return nil, NewExternalServiceError("identity-provider", "send verification code", err)
	}

	s.logger.Info("Account registered", "email", req.Email, "role", role)

	return &RegisterResult{
		Email:       req.Email,
		RedirectURL: "/verificar?email=" + req.Email,
	}, nil
}

// ===== VERIFICATION =====

func (s *registrationService) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, NewValidationError("El código es obligatorio.")
	}

	account, err := s.repo.Account().VerifyCode(ctx, email, code, repositories.CodePurposeSignup)
	if err != nil {
		if errors.Is(err, repositories.ErrCodeInvalid) || errors.Is(err, repositories.ErrNotFound) {
			return nil, NewVerificationError("Código incorrecto o expirado. Intenta de nuevo.")
		}
		return nil, NewExternalServiceError("identity-provider", "verify code", err)
	}

	profile, err := s.createProfileFromAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.TypeProfileCreated,
		Data: events.ProfileCreatedEvent{ProfileID: profile.ID, Role: string(profile.Role)},
	})

	// Pending collectors get no session until an admin decides.
	if profile.Role == models.RoleLancheroPendiente {
		return &VerifyResult{Pending: true, RedirectURL: "/?mensaje=lanchero_pendiente"}, nil
	}

	token, err := s.sessions.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	return &VerifyResult{Token: token, RedirectURL: "/dashboard"}, nil
}

// createProfileFromAccount materializes the Profile row from the metadata
// captured at registration. Runs in the verification request so the member
// sees their dashboard immediately, with no reconciliation delay.
func (s *registrationService) createProfileFromAccount(ctx context.Context, account *models.Account) (*models.Profile, error) {
	birthDate, _ := time.Parse("2006-01-02", account.Metadata[models.MetaBirthDate])

	role := models.Role(account.Metadata[models.MetaRole])
	if role == "" {
		role = models.RoleUsuario
	}

	profile := &models.Profile{
		ID:           account.ID,
		Name:         account.Metadata[models.MetaName],
		Phone:        account.Metadata[models.MetaPhone],
		Neighborhood: account.Metadata[models.MetaNeighborhood],
		Email:        account.Email,
		Role:         role,
		BirthDate:    birthDate,
	}

	if role == models.RoleLancheroPendiente {
		application, err := json.Marshal(models.CollectorApplication{
			Message:  account.Metadata[models.MetaMessage],
			PhotoURL: account.Metadata[models.MetaPhotoURL],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode collector application: %w", err)
		}
		profile.Application = datatypes.JSON(application)
	}

	if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Lost the uniqueness race after the pre-check passed.
			return nil, NewConflictError("Este nombre de usuario ya está en uso. Por favor, elige otro.")
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("Profile created", "profile_id", profile.ID, "role", profile.Role)
	return profile, nil
}

func (s *registrationService) ResendCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	exists, err := s.repo.Account().ExistsByEmail(ctx, email)
	if err != nil {
		return NewExternalServiceError("identity-provider", "account lookup", err)
	}
	if !exists {
		// Same response as the happy path so addresses cannot be probed.
		return nil
	}

	if err := s.repo.Account().IssueCode(ctx, email, repositories.CodePurposeSignup); err != nil {
		return NewExternalServiceError("identity-provider", "send verification code", err)
	}
	return nil
}

// ===== LOGIN =====

func (s *registrationService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	identifier := strings.TrimSpace(req.Identifier)

	email := identifier
	if !strings.Contains(identifier, "@") {
		resolved, err := s.repo.Profile().ResolveEmail(ctx, identifier)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, NewValidationError("Datos incorrectos")
			}
			return nil, fmt.Errorf("identifier lookup failed: %w", err)
		}
		email = resolved
	}

	account, err := s.repo.Account().VerifyPassword(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrBadCredentials) || errors.Is(err, repositories.ErrNotFound) {
			return nil, NewValidationError("Datos incorrectos")
		}
		return nil, NewExternalServiceError("identity-provider", "check credentials", err)
	}
	if !account.EmailVerified {
		return nil, NewValidationError("Datos incorrectos")
	}

	profile, err := s.repo.Profile().GetByID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewValidationError("Datos incorrectos")
		}
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	if profile.Role == models.RoleLancheroPendiente {
		return nil, NewValidationError("Tu solicitud para ser lanchero aún está en revisión. Serás notificado por correo.")
	}

	token, err := s.sessions.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	return &LoginResult{
		Token:       token,
		Role:        string(profile.Role),
		RedirectURL: redirectForRole(profile.Role),
	}, nil
}

// ===== PASSWORD RESET =====

func (s *registrationService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	exists, err := s.repo.Account().ExistsByEmail(ctx, email)
	if err != nil || !exists {
		if err != nil {
			s.logger.Error("Password reset lookup failed", "error", err)
		}
		// Always report success so addresses cannot be probed.
		return nil
	}

	if err := s.repo.Account().IssueCode(ctx, email, repositories.CodePurposePasswordReset); err != nil {
		s.logger.Error("Password reset code delivery failed", "email", email, "error", err)
	}
	return nil
}

func (s *registrationService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(email)

	if _, err := s.repo.Account().VerifyCode(ctx, email, code, repositories.CodePurposePasswordReset); err != nil {
		if errors.Is(err, repositories.ErrCodeInvalid) || errors.Is(err, repositories.ErrNotFound) {
			return NewVerificationError("Código incorrecto o expirado. Intenta de nuevo.")
		}
		return NewExternalServiceError("identity-provider", "verify reset code", err)
	}

	if err := s.repo.Account().UpdatePassword(ctx, email, newPassword); err != nil {
		return NewExternalServiceError("identity-provider", "update password", err)
	}

	s.logger.Info("Password reset completed", "email", email)
	return nil
}

// ===== HELPERS =====

func (s *registrationService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Event publish failed", "type", event.Type, "error", err)
	}
}

func normalizeRegisterRequest(req *RegisterRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Neighborhood = strings.TrimSpace(req.Neighborhood)
	req.Message = strings.TrimSpace(req.Message)
	if req.Role == "" {
		req.Role = string(models.RoleUsuario)
	}
}

func redirectForRole(role models.Role) string {
	switch role {
	case models.RoleLanchero:
		return "/lanchero"
	case models.RoleAdmin:
		return "/admin/solicitudes"
	default:
		return "/dashboard"
	}
}

// fileExt extracts the extension of an uploaded filename, defaulting to jpg.
func fileExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return strings.ToLower(filename[i+1:])
	}
	return "jpg"
}
