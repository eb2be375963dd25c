package embcache

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"petfinder/internal/encoder"
	"petfinder/internal/models/db_models"
	"petfinder/internal/repositories"
)

// Postgres stores embeddings in the photo_embeddings pgvector table.
type Postgres struct {
	repo repositories.PhotoEmbeddingRepository
}

func NewPostgres(repo repositories.PhotoEmbeddingRepository) *Postgres {
	return &Postgres{repo: repo}
}

func (p *Postgres) Get(ctx context.Context, key string) (encoder.Vector, bool, error) {
	row, err := p.repo.GetByHash(ctx, key)
	if err != nil || row == nil {
		return nil, false, err
	}
	vec := row.Embedding.Slice()
	if len(vec) == 0 || (row.Dimension > 0 && len(vec) != row.Dimension) {
		return nil, false, nil
	}
	return encoder.Vector(vec), true, nil
}

func (p *Postgres) Put(ctx context.Context, key string, recordID uuid.UUID, vec encoder.Vector) error {
	return p.repo.Upsert(ctx, &db_models.PhotoEmbedding{
		ContentHash:     key,
		AdvertisementID: recordID,
		Dimension:       len(vec),
		Embedding:       pgvector.NewVector([]float32(vec)),
	})
}

func (p *Postgres) Close() error { return nil }
