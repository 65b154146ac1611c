package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/events"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

const (
	topUsersLimit = 3
	co2PerKg      = 2.5
)

type profileService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewProfileService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ProfileService {
	return &profileService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *profileService) Get(ctx context.Context, accountID string) (*models.Profile, error) {
	if accountID == "" {
		return nil, ErrUnauthenticated
	}

	profile, err := s.repo.Profile().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, accountID string, req *ProfileUpdateRequest) (*models.Profile, error) {
	profile, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != "" && name != profile.Name {
			taken, err := s.repo.Profile().ExistsByName(ctx, name, accountID)
			if err != nil {
				return nil, fmt.Errorf("name lookup failed: %w", err)
			}
			if taken {
				return nil, NewConflictError("Ese nombre ya está en uso. Por favor, elige otro.")
			}
			fields["name"] = name
		}
	}
	if req.Neighborhood != nil {
		if barrio := strings.TrimSpace(*req.Neighborhood); barrio != "" {
			fields["neighborhood"] = barrio
		}
	}

	var newEmail string
	if req.Email != nil {
		if email := strings.TrimSpace(*req.Email); email != "" && email != profile.Email {
			newEmail = email
			fields["email"] = email
		}
	}

	if len(fields) == 0 {
		return profile, nil
	}

	if err := s.repo.Profile().UpdateFields(ctx, nil, accountID, fields); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, NewConflictError("Ese nombre ya está en uso. Por favor, elige otro.")
		}
		return nil, fmt.Errorf("profile update failed: %w", err)
	}

	// The identity provider stays the authority for the login email.
	if newEmail != "" {
		if err := s.repo.Account().UpdateEmail(ctx, accountID, newEmail); err != nil {
			return nil, NewExternalServiceError("identity-provider", "update email", err)
		}
	}

	return s.Get(ctx, accountID)
}

func (s *profileService) UploadAvatar(ctx context.Context, accountID string, photo *Upload) (string, error) {
	if accountID == "" {
		return "", ErrUnauthenticated
	}
	if photo == nil || len(photo.Data) == 0 {
		return "", NewValidationError("No se ha seleccionado ninguna imagen.")
	}

	path := fmt.Sprintf("public/%s.%s", accountID, fileExt(photo.Filename))
	url, err := s.repo.Blob().Upload(ctx, models.BucketAvatars, path, photo.ContentType, photo.Data, true)
	if err != nil {
		return "", NewExternalServiceError("blob-store", "upload avatar", err)
	}

	if err := s.repo.Profile().UpdateFields(ctx, nil, accountID, map[string]interface{}{"avatar_url": url}); err != nil {
		return "", fmt.Errorf("avatar update failed: %w", err)
	}
	return url, nil
}

// DeleteAccount removes the avatar blob, the identity-provider account and
// the local rows. The steps are not atomic across the provider boundary; a
// failure mid-way can leave the blob orphaned, never a live account.
func (s *profileService) DeleteAccount(ctx context.Context, accountID string) error {
	profile, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	if profile.AvatarURL != nil {
		if bucket, path, ok := splitBlobURL(*profile.AvatarURL); ok {
			if err := s.repo.Blob().Delete(ctx, bucket, path); err != nil {
				s.logger.Warn("Avatar cleanup failed", "profile_id", accountID, "error", err)
			}
		}
	}

	if err := s.repo.Account().Delete(ctx, accountID); err != nil {
		return NewExternalServiceError("identity-provider", "delete account", err)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Report().DeleteByUser(ctx, nil, accountID); err != nil {
			return err
		}
		return txRepo.Profile().Delete(ctx, nil, accountID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete profile data: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type: events.TypeAccountDeleted,
		Data: events.AccountDeletedEvent{AccountID: accountID},
	}); err != nil {
		s.logger.Error("Event publish failed", "type", events.TypeAccountDeleted, "error", err)
	}

	s.logger.Info("Account deleted", "profile_id", accountID)
	return nil
}

// ===== DASHBOARD =====

func (s *profileService) Summary(ctx context.Context, accountID string) (*models.ProfileSummary, error) {
	profile, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	topUsers, err := s.repo.Profile().Leaderboard(ctx, topUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard lookup failed: %w", err)
	}

	return &models.ProfileSummary{
		Name:       profile.Name,
		RecycledKg: profile.RecycledKg,
		Minutes:    profile.Minutes,
		Trees:      int(profile.RecycledKg),
		CO2Avoided: math.Round(profile.RecycledKg*co2PerKg*10) / 10,
		TopUsers:   topUsers,
	}, nil
}

// WeeklyProgress buckets the caller's collected kilograms per day over the
// last seven days, today included. Days without pickups stay at zero.
func (s *profileService) WeeklyProgress(ctx context.Context, accountID string) ([]models.DailyProgress, error) {
	if accountID == "" {
		return nil, ErrUnauthenticated
	}

	now := time.Now()
	since := now.AddDate(0, 0, -7)

	reports, err := s.repo.Report().CollectedSince(ctx, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("report lookup failed: %w", err)
	}

	totals := make(map[string]float64, 7)
	for i := 0; i < 7; i++ {
		totals[now.AddDate(0, 0, -i).Format("2006-01-02")] = 0
	}
	for _, report := range reports {
		day := report.CreatedAt.Format("2006-01-02")
		if _, ok := totals[day]; ok {
			totals[day] += report.ReportedKg
		}
	}

	progress := make([]models.DailyProgress, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		progress = append(progress, models.DailyProgress{Date: day, Kg: totals[day]})
	}
	return progress, nil
}

func (s *profileService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = topUsersLimit
	}
	return s.repo.Profile().Leaderboard(ctx, limit)
}

// splitBlobURL recovers the bucket and object path from a public media URL.
func splitBlobURL(url string) (bucket, path string, ok bool) {
	const marker = "/media/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", "", false
	}
	rest := url[i+len(marker):]
	j := strings.Index(rest, "/")
	if j <= 0 || j == len(rest)-1 {
		return "", "", false
	}
	return rest[:j], rest[j+1:], true
}
