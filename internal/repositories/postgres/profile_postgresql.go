package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/cache"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

type ProfilePostgreSQL struct {
	db          *gorm.DB
	cacheHelper *cache.CacheHelper
}

func NewProfilePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ProfileRepository {
	return &ProfilePostgreSQL{
		db:          db,
		cacheHelper: cache.NewCacheHelper(redisClient, cache.LeaderboardCacheConfig.Prefix),
	}
}

// getDB returns the transaction DB if provided, otherwise the default DB
func (p *ProfilePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

func (p *ProfilePostgreSQL) Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	if err := p.getDB(tx).WithContext(ctx).Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	p.cacheHelper.Invalidate(ctx, "top")
	return nil
}

func (p *ProfilePostgreSQL) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := p.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	var profile models.Profile
	err := p.db.WithContext(ctx).First(&profile, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by name: %w", err)
	}
	return &profile, nil
}

// ResolveEmail maps a phone number or member name to the account email.
func (p *ProfilePostgreSQL) ResolveEmail(ctx context.Context, identifier string) (string, error) {
	var profile models.Profile
	err := p.db.WithContext(ctx).
		Where("phone = ? OR name = ?", identifier, identifier).
		Limit(1).
		Take(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", repositories.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve login identifier: %w", err)
	}
	return profile.Email, nil
}

func (p *ProfilePostgreSQL) Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	if err := p.getDB(tx).WithContext(ctx).Save(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	p.cacheHelper.Invalidate(ctx, "top")
	return nil
}

func (p *ProfilePostgreSQL) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]interface{}) error {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("failed to update profile fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	p.cacheHelper.Invalidate(ctx, "top")
	return nil
}

func (p *ProfilePostgreSQL) UpdateRole(ctx context.Context, tx *gorm.DB, id string, role models.Role) error {
	return p.UpdateFields(ctx, tx, id, map[string]interface{}{"role": role})
}

func (p *ProfilePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	if err := p.getDB(tx).WithContext(ctx).Delete(&models.Profile{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	p.cacheHelper.Invalidate(ctx, "top")
	return nil
}

func (p *ProfilePostgreSQL) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	return p.exists(ctx, "name = ?", name, excludeID)
}

func (p *ProfilePostgreSQL) ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error) {
	return p.exists(ctx, "phone = ?", phone, excludeID)
}

func (p *ProfilePostgreSQL) exists(ctx context.Context, query, value, excludeID string) (bool, error) {
	var count int64
	q := p.db.WithContext(ctx).Model(&models.Profile{}).Where(query, value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return count > 0, nil
}

func (p *ProfilePostgreSQL) ListByRole(ctx context.Context, role models.Role, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	var total int64
	q := p.db.WithContext(ctx).Model(&models.Profile{}).Where("role = ?", role)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := "asc"
	if filters.SortOrder == "desc" {
		order = "desc"
	}

	var profiles []*models.Profile
	err := q.Order(fmt.Sprintf("%s %s", sortBy, order)).
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	return profiles, total, nil
}

// Leaderboard returns the top profiles by recycled kilograms. Results are
// cached briefly; the cache is invalidated on any profile write.
func (p *ProfilePostgreSQL) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 3
	}

	cacheKey := fmt.Sprintf("top:%d", limit)
	var entries []models.LeaderboardEntry

	err := p.cacheHelper.GetOrExecute(ctx, cacheKey, &entries, cache.LeaderboardCacheConfig.TTL, func() (interface{}, error) {
		var rows []models.LeaderboardEntry
		err := p.db.WithContext(ctx).
			Model(&models.Profile{}).
			Select("name", "recycled_kg").
			Order("recycled_kg DESC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query leaderboard: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (p *ProfilePostgreSQL) AddRecycledKg(ctx context.Context, tx *gorm.DB, id string, kg float64) error {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Update("recycled_kg", gorm.Expr("recycled_kg + ?", kg))
	if result.Error != nil {
		return fmt.Errorf("failed to credit recycled kg: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	p.cacheHelper.Invalidate(ctx, "top")
	return nil
}
