package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/events"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

type reportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ReportService {
	return &reportService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *reportService) Submit(ctx context.Context, accountID string, req *ReportCreateRequest, photo *Upload) (*models.PickupReport, error) {
	if accountID == "" {
		return nil, ErrUnauthenticated
	}
	if req.Kg <= 0 || photo == nil || len(photo.Data) == 0 {
		return nil, NewValidationError("Todos los campos son obligatorios.")
	}

	path := fmt.Sprintf("public/%s_%d.%s", accountID, time.Now().Unix(), fileExt(photo.Filename))
	photoURL, err := s.repo.Blob().Upload(ctx, models.BucketReportPhotos, path, photo.ContentType, photo.Data, false)
	if err != nil {
		return nil, NewExternalServiceError("blob-store", "upload report photo", err)
	}

	report := &models.PickupReport{
		UserID:     accountID,
		ReportedKg: req.Kg,
		Location:   req.Location,
		PhotoURL:   photoURL,
	}
	if err := s.repo.Report().Create(ctx, nil, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info("Pickup report submitted", "report_id", report.ID, "user_id", accountID, "kg", req.Kg)
	return report, nil
}

func (s *reportService) ListPending(ctx context.Context) (*PendingReportsResponse, error) {
	reports, total, err := s.repo.Report().ListPending(ctx, repositories.ReportFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reports: %w", err)
	}
	return &PendingReportsResponse{Reports: reports, Total: total}, nil
}

// MarkCollected flips the report exactly once and credits the reporter's
// recycled kilograms in the same transaction. A report that is already
// collected is left untouched and the call succeeds without crediting.
func (s *reportService) MarkCollected(ctx context.Context, reportID uint, collectorID string) error {
	report, err := s.repo.Report().GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("report lookup failed: %w", err)
	}

	var flipped bool
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		flipped, err = txRepo.Report().MarkCollected(ctx, nil, reportID, collectorID)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		return txRepo.Profile().AddRecycledKg(ctx, nil, report.UserID, report.ReportedKg)
	})
	if err != nil {
		return fmt.Errorf("failed to mark report collected: %w", err)
	}

	if !flipped {
		s.logger.Debug("Report already collected", "report_id", reportID, "collector_id", collectorID)
		return nil
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type: events.TypeReportCollected,
		Data: events.ReportCollectedEvent{
			ReportID:    reportID,
			OwnerID:     report.UserID,
			CollectorID: collectorID,
			Kg:          report.ReportedKg,
		},
	}); err != nil {
		s.logger.Error("Event publish failed", "type", events.TypeReportCollected, "error", err)
	}

	s.logger.Info("Report collected", "report_id", reportID, "collector_id", collectorID, "kg", report.ReportedKg)
	return nil
}
