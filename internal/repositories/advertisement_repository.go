package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"petfinder/internal/matching"
	"petfinder/internal/models/db_models"
	"petfinder/pkg/utils"
)

// AdvertisementRepository is the gorm-backed attribute store.
type AdvertisementRepository interface {
	matching.AttributeStore

	GetByID(ctx context.Context, id uuid.UUID) (*matching.Record, error)
	ListIndexable(ctx context.Context) ([]matching.Record, error)
	Create(ctx context.Context, ad *db_models.Advertisement) (uuid.UUID, error)
	MarkPlaceholder(ctx context.Context, id uuid.UUID, placeholder bool) error
}

type advertisementRepository struct {
	db *gorm.DB
}

func NewAdvertisementRepository(db *gorm.DB) AdvertisementRepository {
	return &advertisementRepository{db: db}
}

// searchable scopes a query to records that may appear in results.
func (r *advertisementRepository) searchable(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&db_models.Advertisement{}).
		Where("is_placeholder = ?", false).
		Where("NOT (title = ? AND description = ?)", db_models.PlaceholderText, db_models.PlaceholderText)
}

func (r *advertisementRepository) Find(ctx context.Context, q matching.Query) ([]matching.Record, error) {
	tx := r.searchable(ctx)
	if q.Species != "" {
		tx = tx.Where("LOWER(type) = ?", strings.ToLower(q.Species))
	}
	if q.Color != "" {
		tx = tx.Where("LOWER(color) = ?", strings.ToLower(q.Color))
	}
	if q.Status != "" {
		tx = tx.Where("LOWER(status) = ?", strings.ToLower(q.Status))
	}
	if len(q.BreedPatterns) > 0 {
		conds := make([]string, 0, len(q.BreedPatterns))
		args := make([]any, 0, len(q.BreedPatterns))
		for _, p := range q.BreedPatterns {
			conds = append(conds, "LOWER(breed) LIKE ?")
			args = append(args, "%"+escapeLike(strings.ToLower(p))+"%")
		}
		tx = tx.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var ads []db_models.Advertisement
	if err := tx.Order("created_at DESC").Order("id ASC").Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("%w: find advertisements: %v", utils.ErrDatabaseError, err)
	}
	return toRecords(ads), nil
}

func (r *advertisementRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]matching.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ads []db_models.Advertisement
	if err := r.searchable(ctx).Where("id IN ?", ids).Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("%w: get advertisements: %v", utils.ErrDatabaseError, err)
	}
	return toRecords(ads), nil
}

// GetByID returns nil, nil when the record does not exist or is a placeholder.
func (r *advertisementRepository) GetByID(ctx context.Context, id uuid.UUID) (*matching.Record, error) {
	var ad db_models.Advertisement
	err := r.searchable(ctx).First(&ad, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get advertisement: %v", utils.ErrDatabaseError, err)
	}
	rec := ToRecord(ad)
	return &rec, nil
}

func (r *advertisementRepository) ListIndexable(ctx context.Context) ([]matching.Record, error) {
	var ads []db_models.Advertisement
	err := r.searchable(ctx).
		Where("photo IS NOT NULL AND photo <> ''").
		Order("id ASC").
		Find(&ads).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list indexable: %v", utils.ErrDatabaseError, err)
	}
	return toRecords(ads), nil
}

func (r *advertisementRepository) Create(ctx context.Context, ad *db_models.Advertisement) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).Create(ad).Error; err != nil {
		return uuid.Nil, fmt.Errorf("%w: create advertisement: %v", utils.ErrDatabaseError, err)
	}
	return ad.ID, nil
}

func (r *advertisementRepository) MarkPlaceholder(ctx context.Context, id uuid.UUID, placeholder bool) error {
	err := r.db.WithContext(ctx).
		Model(&db_models.Advertisement{}).
		Where("id = ?", id).
		Update("is_placeholder", placeholder).Error
	if err != nil {
		return fmt.Errorf("%w: mark placeholder: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

// ToRecord maps the gorm model onto the matcher's view of a record.
func ToRecord(ad db_models.Advertisement) matching.Record {
	return matching.Record{
		ID:          ad.ID,
		Title:       ad.Title,
		Description: ad.Description,
		Author:      ad.Author,
		Phone:       ad.Phone,
		Species:     ad.Type,
		Breed:       ad.Breed,
		Color:       ad.Color,
		Sex:         ad.Sex,
		Status:      ad.Status,
		Features:    []string(ad.SpecialFeatures),
		PhotoRef:    ad.Photo,
		Location:    ad.Location,
		Latitude:    ad.Latitude,
		Longitude:   ad.Longitude,
		CreatedAt:   ad.CreatedTime(),
	}
}

func toRecords(ads []db_models.Advertisement) []matching.Record {
	out := make([]matching.Record, 0, len(ads))
	for _, ad := range ads {
		if ad.Placeholder() {
			continue
		}
		out = append(out, ToRecord(ad))
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
