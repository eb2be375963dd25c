package matching

import (
	"context"
	"time"

	"github.com/google/uuid"

	"petfinder/internal/vectorindex"
)

// MatchType records which stage produced a candidate.
type MatchType string

const (
	MatchVisual MatchType = "visual_similarity"
	MatchBreed  MatchType = "breed_match"
	MatchColor  MatchType = "color_match"
	MatchKind   MatchType = "type_match"
)

// Priority orders match types; lower wins on merge and on score ties.
func (m MatchType) Priority() int {
	switch m {
	case MatchVisual:
		return 0
	case MatchBreed:
		return 1
	case MatchColor:
		return 2
	case MatchKind:
		return 3
	}
	return 4
}

// Label is a classifier output or a declared attribute with its confidence.
type Label struct {
	Value      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Record is the slice of an advertisement the matcher works with.
type Record struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Species     string    `json:"type"`
	Breed       string    `json:"breed"`
	Color       string    `json:"color"`
	Sex         string    `json:"sex,omitempty"`
	Status      string    `json:"status"`
	Features    []string  `json:"special_features,omitempty"`
	PhotoRef    string    `json:"photo,omitempty"`
	Location    string    `json:"location,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Request carries the resolved query attributes. Species "" means the
// species could not be determined and no stage filters on it.
type Request struct {
	QueryVector []float32
	Species     string
	Breed       Label
	Color       string
	Features    []string
	Status      string
}

type Candidate struct {
	RecordID        uuid.UUID
	Similarity      float64
	MatchType       MatchType
	Record          Record
	MatchedFeatures []string
}

type Result struct {
	Candidates []Candidate
	// TotalFound counts merged candidates before truncation.
	TotalFound int
	// Degraded names the stages that failed and contributed nothing.
	Degraded []string
}

// Query is a conjunction of attribute predicates. Empty fields do not
// constrain. BreedPatterns match as an OR of case-insensitive substrings.
// Placeholder records never match.
type Query struct {
	Species       string
	BreedPatterns []string
	Color         string
	Status        string
	Limit         int
}

type AttributeStore interface {
	Find(ctx context.Context, q Query) ([]Record, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Record, error)
}

type VectorSearcher interface {
	Search(vec []float32, k int) ([]vectorindex.Hit, error)
}
