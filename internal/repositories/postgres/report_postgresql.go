package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

func (r *ReportPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ReportPostgreSQL) Create(ctx context.Context, tx *gorm.DB, report *models.PickupReport) error {
	if err := r.getDB(tx).WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create pickup report: %w", err)
	}
	return nil
}

func (r *ReportPostgreSQL) GetByID(ctx context.Context, id uint) (*models.PickupReport, error) {
	var report models.PickupReport
	err := r.db.WithContext(ctx).First(&report, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pickup report: %w", err)
	}
	return &report, nil
}

// ListPending returns uncollected reports, newest first, joined with the
// reporter's name and neighborhood for the collector view.
func (r *ReportPostgreSQL) ListPending(ctx context.Context, filters repositories.ReportFilters) ([]*models.PendingReport, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 100
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.PickupReport{}).
		Where("collected = ?", false).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending reports: %w", err)
	}

	var rows []*models.PendingReport
	err := r.db.WithContext(ctx).
		Model(&models.PickupReport{}).
		Select("pickup_reports.*, profiles.name AS reporter_name, profiles.neighborhood AS reporter_neighborhood").
		Joins("JOIN profiles ON profiles.id = pickup_reports.user_id").
		Where("pickup_reports.collected = ?", false).
		Order("pickup_reports.created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending reports: %w", err)
	}

	return rows, total, nil
}

func (r *ReportPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.ReportFilters) ([]*models.PickupReport, error) {
	if filters.Limit <= 0 {
		filters.Limit = 100
	}

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filters.Collected != nil {
		q = q.Where("collected = ?", *filters.Collected)
	}
	if filters.DateFrom != nil {
		q = q.Where("created_at >= ?", *filters.DateFrom)
	}

	var reports []*models.PickupReport
	err := q.Order("created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// MarkCollected flips the collected flag once. The WHERE collected = false
// guard makes concurrent or repeated collect calls a no-op, so kilograms can
// never be credited twice off the back of it.
func (r *ReportPostgreSQL) MarkCollected(ctx context.Context, tx *gorm.DB, reportID uint, collectorID string) (bool, error) {
	now := time.Now()
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.PickupReport{}).
		Where("id = ? AND collected = ?", reportID, false).
		Updates(map[string]interface{}{
			"collected":    true,
			"collected_by": collectorID,
			"collected_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark report collected: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *ReportPostgreSQL) CollectedSince(ctx context.Context, userID string, since time.Time) ([]*models.PickupReport, error) {
	var reports []*models.PickupReport
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND collected = ? AND created_at >= ?", userID, true, since).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query collected reports: %w", err)
	}
	return reports, nil
}

func (r *ReportPostgreSQL) DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error {
	if err := r.getDB(tx).WithContext(ctx).
		Delete(&models.PickupReport{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete reports: %w", err)
	}
	return nil
}
