package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"petfinder/internal/models/db_models"
	"petfinder/pkg/utils"
)

type PhotoEmbeddingRepository interface {
	GetByHash(ctx context.Context, hash string) (*db_models.PhotoEmbedding, error)
	Upsert(ctx context.Context, e *db_models.PhotoEmbedding) error
}

type photoEmbeddingRepository struct {
	db *gorm.DB
}

func NewPhotoEmbeddingRepository(db *gorm.DB) PhotoEmbeddingRepository {
	return &photoEmbeddingRepository{db: db}
}

// GetByHash returns nil, nil on a miss.
func (r *photoEmbeddingRepository) GetByHash(ctx context.Context, hash string) (*db_models.PhotoEmbedding, error) {
	var e db_models.PhotoEmbedding
	err := r.db.WithContext(ctx).First(&e, "content_hash = ?", hash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get embedding: %v", utils.ErrDatabaseError, err)
	}
	return &e, nil
}

func (r *photoEmbeddingRepository) Upsert(ctx context.Context, e *db_models.PhotoEmbedding) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"advertisement_id", "dimension", "embedding", "updated_at"}),
		}).
		Create(e).Error
	if err != nil {
		return fmt.Errorf("%w: upsert embedding: %v", utils.ErrDatabaseError, err)
	}
	return nil
}
