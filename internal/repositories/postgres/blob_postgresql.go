package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

// BlobPostgreSQL keeps uploaded images in a plain table and serves them
// through the public /media route. Objects are small phone photos, well
// within what a bytea column handles comfortably.
type BlobPostgreSQL struct {
	db      *gorm.DB
	baseURL string
}

func NewBlobPostgreSQL(db *gorm.DB, baseURL string) repositories.BlobRepository {
	return &BlobPostgreSQL{
		db:      db,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (b *BlobPostgreSQL) Upload(ctx context.Context, bucket, path, contentType string, data []byte, upsert bool) (string, error) {
	object := &models.StoredObject{
		Bucket:      bucket,
		Path:        path,
		ContentType: contentType,
		Data:        data,
	}

	q := b.db.WithContext(ctx)
	if upsert {
		q = q.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bucket"}, {Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"content_type", "data", "updated_at"}),
		})
	}

	if err := q.Create(object).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", repositories.ErrDuplicateKey
		}
		return "", fmt.Errorf("failed to store object %s/%s: %w", bucket, path, err)
	}

	return b.PublicURL(bucket, path), nil
}

func (b *BlobPostgreSQL) Get(ctx context.Context, bucket, path string) (*models.StoredObject, error) {
	var object models.StoredObject
	err := b.db.WithContext(ctx).
		First(&object, "bucket = ? AND path = ?", bucket, path).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, path, err)
	}
	return &object, nil
}

func (b *BlobPostgreSQL) Delete(ctx context.Context, bucket, path string) error {
	if err := b.db.WithContext(ctx).
		Delete(&models.StoredObject{}, "bucket = ? AND path = ?", bucket, path).Error; err != nil {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, path, err)
	}
	return nil
}

func (b *BlobPostgreSQL) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/media/%s/%s", b.baseURL, bucket, path)
}
