package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/events"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

type applicationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewApplicationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ApplicationService {
	return &applicationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *applicationService) ListApplications(ctx context.Context) (*ApplicationListResponse, error) {
	profiles, total, err := s.repo.Profile().ListByRole(ctx, models.RoleLancheroPendiente, repositories.ProfileFilters{
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return &ApplicationListResponse{Applications: profiles, Total: total}, nil
}

func (s *applicationService) Process(ctx context.Context, adminID string, req *ProcessApplicationRequest) error {
	if req.ApplicationID == "" || req.Decision == "" {
		return NewValidationError("Faltan datos.")
	}

	profile, err := s.repo.Profile().GetByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("profile lookup failed: %w", err)
	}

	switch req.Decision {
	case "aprobar":
		return s.approve(ctx, adminID, profile)
	case "rechazar":
		return s.reject(ctx, adminID, profile)
	default:
		return NewValidationError("Acción no válida.")
	}
}

// approve promotes the applicant to lanchero. Approving an already promoted
// profile is a no-op success, so a double-click changes nothing.
func (s *applicationService) approve(ctx context.Context, adminID string, profile *models.Profile) error {
	if profile.Role == models.RoleLanchero {
		return nil
	}

	if err := s.repo.Profile().UpdateRole(ctx, nil, profile.ID, models.RoleLanchero); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	s.publish(ctx, events.Event{
		Type: events.TypeApplicationApproved,
		Data: events.ApplicationDecisionEvent{ProfileID: profile.ID, Decision: "aprobar", AdminID: adminID},
	})

	s.logger.Info("Collector application approved", "profile_id", profile.ID, "admin_id", adminID)
	return nil
}

// reject removes the applicant entirely: boat photo, provider account and
// local rows. Blob cleanup is best effort.
func (s *applicationService) reject(ctx context.Context, adminID string, profile *models.Profile) error {
	if len(profile.Application) > 0 {
		var application models.CollectorApplication
		if err := json.Unmarshal(profile.Application, &application); err == nil && application.PhotoURL != "" {
			if bucket, path, ok := splitBlobURL(application.PhotoURL); ok {
				if err := s.repo.Blob().Delete(ctx, bucket, path); err != nil {
					s.logger.Warn("Boat photo cleanup failed", "profile_id", profile.ID, "error", err)
				}
			}
		}
	}

	if err := s.repo.Account().Delete(ctx, profile.ID); err != nil {
		return NewExternalServiceError("identity-provider", "delete account", err)
	}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Report().DeleteByUser(ctx, nil, profile.ID); err != nil {
			return err
		}
		return txRepo.Profile().Delete(ctx, nil, profile.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete applicant data: %w", err)
	}

	s.publish(ctx, events.Event{
		Type: events.TypeApplicationRejected,
		Data: events.ApplicationDecisionEvent{ProfileID: profile.ID, Decision: "rechazar", AdminID: adminID},
	})

	s.logger.Info("Collector application rejected", "profile_id", profile.ID, "admin_id", adminID)
	return nil
}

func (s *applicationService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Event publish failed", "type", event.Type, "error", err)
	}
}
