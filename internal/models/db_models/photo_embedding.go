package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PhotoEmbedding caches the embedding of one photo, keyed by the SHA-256 of
// the photo bytes.
type PhotoEmbedding struct {
	ContentHash     string          `gorm:"primaryKey;size:64;column:content_hash"`
	AdvertisementID uuid.UUID       `gorm:"type:uuid;index"`
	Dimension       int             `gorm:"not null"`
	Embedding       pgvector.Vector `gorm:"type:vector"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

func (PhotoEmbedding) TableName() string { return "photo_embeddings" }
