package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

// roleGateService re-reads the profile on every call so a role change (an
// approval, a revocation) takes effect on the next request. No decision is
// ever cached; an admin role does not stand in for any other role.
type roleGateService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewRoleGateService(repo repositories.Repository, logger *slog.Logger) RoleGateService {
	return &roleGateService{repo: repo, logger: logger}
}

func (s *roleGateService) Authorize(ctx context.Context, accountID string, required models.Role) error {
	if accountID == "" {
		return ErrUnauthenticated
	}

	profile, err := s.repo.Profile().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("profile lookup failed: %w", err)
	}

	if profile.Role != required {
		s.logger.Debug("Role gate refused", "account_id", accountID, "have", profile.Role, "want", required)
		return ErrForbidden
	}
	return nil
}
