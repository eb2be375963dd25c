package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"petfinder/internal/matching"
	"petfinder/internal/models/db_models"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, "husky", escapeLike("husky"))
}

func TestToRecordsDropsPlaceholders(t *testing.T) {
	id := uuid.New()
	ads := []db_models.Advertisement{
		{BaseModel: db_models.BaseModel{ID: id, CreatedAt: 1700000000}, Title: "Lost cat", Type: "cat",
			SpecialFeatures: pq.StringArray{"collar"}, Photo: "ads/1.jpg"},
		{Title: db_models.PlaceholderText, Description: db_models.PlaceholderText, Type: "cat"},
		{Title: "hidden", IsPlaceholder: true},
	}
	recs := toRecords(ads)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, "cat", recs[0].Species)
	assert.Equal(t, []string{"collar"}, recs[0].Features)
	assert.Equal(t, "ads/1.jpg", recs[0].PhotoRef)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), recs[0].CreatedAt)
}

// openTestDB connects to POSTGRES_URL and gives the test a private schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		t.Skip("POSTGRES_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := "test_" + uuid.NewString()[:8]
	require.NoError(t, db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error)
	require.NoError(t, db.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() {
		db.Exec("DROP SCHEMA " + schema + " CASCADE")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.Exec("SET search_path TO "+schema+", public").Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&db_models.Advertisement{}, &db_models.PhotoEmbedding{}, &db_models.Account{}))
	return db
}

func TestAdvertisementRepositoryFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewAdvertisementRepository(db)
	ctx := context.Background()

	mk := func(title, typ, breed, color, status, photo string) uuid.UUID {
		id, err := repo.Create(ctx, &db_models.Advertisement{
			Title: title, Description: title, Type: typ, Breed: breed, Color: color, Status: status, Photo: photo,
		})
		require.NoError(t, err)
		return id
	}
	siberian := mk("Siberian", "dog", "Siberian Husky", "gray", "found", "a.jpg")
	mix := mk("Mix", "dog", "Husky mix", "white", "lost", "b.jpg")
	mk("Lab", "dog", "Labrador", "Gray", "found", "")
	mk("Cat", "cat", "persian", "gray", "found", "c.jpg")
	hidden := mk("Hidden", "dog", "husky", "gray", "found", "d.jpg")
	require.NoError(t, repo.MarkPlaceholder(ctx, hidden, true))
	mk(db_models.PlaceholderText, "dog", "husky", "gray", "found", "e.jpg")

	recs, err := repo.Find(ctx, matching.Query{Species: "DOG", BreedPatterns: []string{"husky", "siberian"}})
	require.NoError(t, err)
	ids := map[uuid.UUID]bool{}
	for _, r := range recs {
		ids[r.ID] = true
	}
	assert.Equal(t, map[uuid.UUID]bool{siberian: true, mix: true}, ids)

	recs, err = repo.Find(ctx, matching.Query{Species: "dog", Color: "gray"})
	require.NoError(t, err)
	assert.Len(t, recs, 2, "case-insensitive color, placeholders excluded")

	recs, err = repo.Find(ctx, matching.Query{Species: "dog", Status: "lost", Limit: 5})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, mix, recs[0].ID)

	recs, err = repo.Find(ctx, matching.Query{BreedPatterns: []string{"%"}})
	require.NoError(t, err)
	assert.Empty(t, recs, "patterns are literal")

	indexable, err := repo.ListIndexable(ctx)
	require.NoError(t, err)
	assert.Len(t, indexable, 3)

	got, err := repo.GetByID(ctx, hidden)
	require.NoError(t, err)
	assert.Nil(t, got)

	byIDs, err := repo.GetByIDs(ctx, []uuid.UUID{siberian, hidden})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, siberian, byIDs[0].ID)
}

func TestPhotoEmbeddingRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewPhotoEmbeddingRepository(db)
	ctx := context.Background()

	miss, err := repo.GetByHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, miss)

	id := uuid.New()
	require.NoError(t, repo.Upsert(ctx, &db_models.PhotoEmbedding{
		ContentHash: "h1", AdvertisementID: id, Dimension: 3, Embedding: pgvector.NewVector([]float32{1, 0, 0}),
	}))
	require.NoError(t, repo.Upsert(ctx, &db_models.PhotoEmbedding{
		ContentHash: "h1", AdvertisementID: id, Dimension: 3, Embedding: pgvector.NewVector([]float32{0, 1, 0}),
	}))

	got, err := repo.GetByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []float32{0, 1, 0}, got.Embedding.Slice())
}
