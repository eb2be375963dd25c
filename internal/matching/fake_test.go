package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"petfinder/internal/vectorindex"
)

// memStore is an in-memory AttributeStore with the same predicate
// semantics as the gorm repository.
type memStore struct {
	records      []Record
	placeholders map[uuid.UUID]bool
	findErr      error
	getErr       error
	queries      []Query
}

func (s *memStore) add(r Record) *memStore {
	s.records = append(s.records, r)
	return s
}

func (s *memStore) Find(_ context.Context, q Query) ([]Record, error) {
	s.queries = append(s.queries, q)
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []Record
	for _, r := range s.records {
		if s.placeholders[r.ID] {
			continue
		}
		if q.Species != "" && !strings.EqualFold(r.Species, q.Species) {
			continue
		}
		if q.Color != "" && !strings.EqualFold(r.Color, q.Color) {
			continue
		}
		if q.Status != "" && !strings.EqualFold(r.Status, q.Status) {
			continue
		}
		if len(q.BreedPatterns) > 0 && !containsAny(strings.ToLower(r.Breed), q.BreedPatterns) {
			continue
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Record
	for _, r := range s.records {
		if want[r.ID] && !s.placeholders[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// staticIndex returns fixed hits regardless of the query.
type staticIndex struct {
	hits []vectorindex.Hit
	err  error
}

func (s staticIndex) Search(_ []float32, k int) ([]vectorindex.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

var errStoreDown = errors.New("connection refused")

func rid(n byte) uuid.UUID {
	var u uuid.UUID
	u[15] = n
	return u
}
