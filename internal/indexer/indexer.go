// Package indexer keeps the vector index in step with the advertisement
// store: full rebuilds, a background rebuild worker and change events.
package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"petfinder/internal/embcache"
	"petfinder/internal/encoder"
	"petfinder/internal/matching"
	"petfinder/internal/photos"
	"petfinder/internal/vectorindex"
)

type Store interface {
	ListIndexable(ctx context.Context) ([]matching.Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (*matching.Record, error)
}

type Index interface {
	Build(ctx context.Context, items []vectorindex.Item) (vectorindex.BuildStats, error)
	Insert(ctx context.Context, item vectorindex.Item) error
}

type Indexer struct {
	store  Store
	photos photos.Source
	index  Index
	log    *zap.Logger
}

func New(store Store, src photos.Source, index Index, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{store: store, photos: src, index: index, log: log.Named("indexer")}
}

// Rebuild reloads every indexable record and rebuilds the index from their
// photos. Unreadable photos are skipped and counted as failures.
func (ix *Indexer) Rebuild(ctx context.Context) (vectorindex.BuildStats, error) {
	records, err := ix.store.ListIndexable(ctx)
	if err != nil {
		return vectorindex.BuildStats{}, fmt.Errorf("indexer: list records: %w", err)
	}

	items := make([]vectorindex.Item, 0, len(records))
	unreadable := 0
	for _, rec := range records {
		item, err := ix.item(ctx, rec)
		if err != nil {
			unreadable++
			ix.log.Warn("photo unreadable", zap.Stringer("record_id", rec.ID), zap.String("photo", rec.PhotoRef), zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	stats, err := ix.index.Build(ctx, items)
	stats.Total += unreadable
	stats.Failed += unreadable
	return stats, err
}

// IndexOne adds or refreshes a single record. It reports false when the
// record is gone or no longer indexable, in which case only a rebuild can
// drop it from the index.
func (ix *Indexer) IndexOne(ctx context.Context, id uuid.UUID) (bool, error) {
	rec, err := ix.store.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("indexer: get record: %w", err)
	}
	if rec == nil || rec.PhotoRef == "" {
		return false, nil
	}
	item, err := ix.item(ctx, *rec)
	if err != nil {
		return false, err
	}
	if err := ix.index.Insert(ctx, item); err != nil {
		return false, fmt.Errorf("indexer: insert %s: %w", id, err)
	}
	return true, nil
}

func (ix *Indexer) item(ctx context.Context, rec matching.Record) (vectorindex.Item, error) {
	data, err := photos.ReadAll(ctx, ix.photos, rec.PhotoRef)
	if err != nil {
		return vectorindex.Item{}, err
	}
	return vectorindex.Item{
		ID:       rec.ID,
		Image:    encoder.RawBytes(data),
		CacheKey: embcache.Key(data),
	}, nil
}
