package matching

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petfinder/internal/encoder"
	"petfinder/internal/vectorindex"
)

type vecEncoder map[string]encoder.Vector

func (v vecEncoder) Embed(_ context.Context, img encoder.Image) (encoder.Vector, error) {
	return v[string(img.(encoder.RawBytes))], nil
}

func (v vecEncoder) Dimension() int { return 2 }

func unitVec(t *testing.T, xs ...float32) encoder.Vector {
	t.Helper()
	v, err := encoder.Unit(xs)
	require.NoError(t, err)
	return v
}

func types(cands []Candidate) map[uuid.UUID]MatchType {
	out := make(map[uuid.UUID]MatchType, len(cands))
	for _, c := range cands {
		out[c.RecordID] = c.MatchType
	}
	return out
}

func TestScenarioInconclusiveSpecies(t *testing.T) {
	v1 := unitVec(t, 1, 0.05)
	v2 := unitVec(t, 0, 1)
	ix := vectorindex.New(vecEncoder{"cat": v1, "dog": v2})
	_, err := ix.Build(context.Background(), []vectorindex.Item{
		{ID: rid(1), Image: encoder.RawBytes("cat")},
		{ID: rid(2), Image: encoder.RawBytes("dog")},
	})
	require.NoError(t, err)

	store := (&memStore{}).
		add(Record{ID: rid(1), Species: "cat", Status: "lost"}).
		add(Record{ID: rid(2), Species: "dog", Status: "found"})

	res, err := NewEngine(ix, store).FindMatches(context.Background(), Request{
		QueryVector: unitVec(t, 1, 0.04),
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	top := res.Candidates[0]
	assert.Equal(t, rid(1), top.RecordID)
	assert.Equal(t, MatchVisual, top.MatchType)
	assert.Greater(t, top.Similarity, 0.99)

	dog := res.Candidates[1]
	assert.Equal(t, rid(2), dog.RecordID)
	assert.Equal(t, MatchKind, dog.MatchType)
	assert.Equal(t, TypeMatchSimilarity, dog.Similarity)
	assert.Equal(t, 2, res.TotalFound)
	assert.Empty(t, res.Degraded)
}

func TestVisualStageFiltersSpecies(t *testing.T) {
	store := (&memStore{}).
		add(Record{ID: rid(1), Species: "dog"}).
		add(Record{ID: rid(2), Species: "cat"}).
		add(Record{ID: rid(3), Species: "Cat"})
	index := staticIndex{hits: []vectorindex.Hit{
		{ID: rid(1), Score: 0.98},
		{ID: rid(2), Score: 0.91},
		{ID: rid(3), Score: 0.88},
	}}

	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{
		QueryVector: []float32{1, 0},
		Species:     "cat",
	})
	require.NoError(t, err)

	got := types(res.Candidates)
	assert.NotContains(t, got, rid(1))
	assert.Equal(t, MatchVisual, got[rid(2)])
	assert.Equal(t, MatchVisual, got[rid(3)])
	for _, c := range res.Candidates {
		if c.MatchType == MatchVisual {
			assert.Equal(t, "cat", normalize(c.Record.Species))
		}
	}
}

func TestVisualStageDropsLowScoresAndUnknownRecords(t *testing.T) {
	store := (&memStore{placeholders: map[uuid.UUID]bool{rid(3): true}}).
		add(Record{ID: rid(1), Species: "cat"}).
		add(Record{ID: rid(2), Species: "cat"}).
		add(Record{ID: rid(3), Species: "cat"})
	index := staticIndex{hits: []vectorindex.Hit{
		{ID: rid(9), Score: 0.99},
		{ID: rid(3), Score: 0.95},
		{ID: rid(1), Score: 0.80},
		{ID: rid(2), Score: 0.70},
	}}

	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{
		QueryVector: []float32{1},
		Species:     "cat",
	})
	require.NoError(t, err)
	got := types(res.Candidates)
	assert.Equal(t, MatchVisual, got[rid(1)])
	assert.Equal(t, MatchKind, got[rid(2)])
	assert.NotContains(t, got, rid(3))
	assert.NotContains(t, got, rid(9))
}

func TestBreedThreshold(t *testing.T) {
	store := (&memStore{}).add(Record{ID: rid(1), Species: "dog", Breed: "Siberian Husky"})

	tests := []struct {
		confidence float64
		want       bool
	}{
		{0.69, false},
		{0.70, false},
		{0.71, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.confidence), func(t *testing.T) {
			res, err := NewEngine(staticIndex{}, store).FindMatches(context.Background(), Request{
				Species: "dog",
				Breed:   Label{Value: "husky", Confidence: tt.confidence},
			})
			require.NoError(t, err)
			require.Len(t, res.Candidates, 1)
			if tt.want {
				assert.Equal(t, MatchBreed, res.Candidates[0].MatchType)
				assert.Equal(t, BreedMatchSimilarity, res.Candidates[0].Similarity)
			} else {
				assert.Equal(t, MatchKind, res.Candidates[0].MatchType)
			}
		})
	}
}

func TestGenericBreedSkipsBreedStage(t *testing.T) {
	store := (&memStore{}).add(Record{ID: rid(1), Species: "cat", Breed: "Mixed breed"})
	for _, breed := range []string{"Mixed Breed", "unknown", "Domestic Shorthair", "Смешанная порода", "  "} {
		res, err := NewEngine(staticIndex{}, store).FindMatches(context.Background(), Request{
			Species: "cat",
			Breed:   Label{Value: breed, Confidence: 0.99},
		})
		require.NoError(t, err)
		for _, c := range res.Candidates {
			assert.NotEqual(t, MatchBreed, c.MatchType, breed)
		}
	}
}

func TestBreedFamilySynonyms(t *testing.T) {
	store := (&memStore{}).
		add(Record{ID: rid(1), Species: "dog", Breed: "Хаски"}).
		add(Record{ID: rid(2), Species: "dog", Breed: "husky mix"}).
		add(Record{ID: rid(3), Species: "dog", Breed: "Сибирский хаски"}).
		add(Record{ID: rid(4), Species: "dog", Breed: "Labrador"})

	res, err := NewEngine(staticIndex{}, store).FindMatches(context.Background(), Request{
		Species: "dog",
		Breed:   Label{Value: "Siberian Husky", Confidence: 0.9},
	})
	require.NoError(t, err)
	got := types(res.Candidates)
	assert.Equal(t, MatchBreed, got[rid(1)])
	assert.Equal(t, MatchBreed, got[rid(2)])
	assert.Equal(t, MatchBreed, got[rid(3)])
	assert.Equal(t, MatchKind, got[rid(4)])
}

func TestPriorityDedup(t *testing.T) {
	store := (&memStore{}).
		add(Record{ID: rid(1), Species: "dog", Breed: "beagle", Color: "brown"}).
		add(Record{ID: rid(2), Species: "dog", Breed: "beagle", Color: "brown"}).
		add(Record{ID: rid(3), Species: "dog", Breed: "pug", Color: "brown"})
	index := staticIndex{hits: []vectorindex.Hit{{ID: rid(1), Score: 0.8}}}

	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{
		QueryVector: []float32{1},
		Species:     "dog",
		Breed:       Label{Value: "Beagle", Confidence: 0.9},
		Color:       "Brown",
	})
	require.NoError(t, err)

	got := types(res.Candidates)
	assert.Len(t, got, 3)
	assert.Equal(t, MatchVisual, got[rid(1)])
	assert.Equal(t, MatchBreed, got[rid(2)])
	assert.Equal(t, MatchColor, got[rid(3)])
	assert.Equal(t, 3, res.TotalFound)
}

func TestOrdering(t *testing.T) {
	store := (&memStore{}).
		add(Record{ID: rid(1), Species: "cat", Breed: "persian"}).
		add(Record{ID: rid(2), Species: "cat", Breed: "persian"}).
		add(Record{ID: rid(3), Species: "cat"}).
		add(Record{ID: rid(4), Species: "cat", Color: "white"}).
		add(Record{ID: rid(5), Species: "cat"}).
		add(Record{ID: rid(6), Species: "cat"})
	index := staticIndex{hits: []vectorindex.Hit{
		{ID: rid(5), Score: 0.9},
		{ID: rid(6), Score: 0.85},
		{ID: rid(3), Score: 0.8},
	}}

	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{
		QueryVector: []float32{1},
		Species:     "cat",
		Breed:       Label{Value: "Persian", Confidence: 0.8},
		Color:       "white",
	})
	require.NoError(t, err)

	var order []uuid.UUID
	for i, c := range res.Candidates {
		order = append(order, c.RecordID)
		if i > 0 {
			assert.LessOrEqual(t, c.Similarity, res.Candidates[i-1].Similarity)
		}
	}
	// 0.9 visual, 0.85 visual before 0.85 breed (ids 1,2), 0.8 visual, 0.6 color.
	assert.Equal(t, []uuid.UUID{rid(5), rid(6), rid(1), rid(2), rid(3), rid(4)}, order)
}

func TestTruncation(t *testing.T) {
	store := &memStore{}
	n := byte(1)
	for i := 0; i < 10; i++ {
		store.add(Record{ID: rid(n), Species: "dog", Breed: "terrier"})
		n++
	}
	for i := 0; i < 10; i++ {
		store.add(Record{ID: rid(n), Species: "dog", Color: "black"})
		n++
	}
	for i := 0; i < 10; i++ {
		store.add(Record{ID: rid(n), Species: "dog"})
		n++
	}

	res, err := NewEngine(staticIndex{}, store).FindMatches(context.Background(), Request{
		Species: "dog",
		Breed:   Label{Value: "Yorkshire Terrier", Confidence: 0.95},
		Color:   "black",
	})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, ResultLimit)
	// 10 breed + 10 color; the type stage only returns records already seen.
	assert.Equal(t, 20, res.TotalFound)
	assert.Equal(t, MatchBreed, res.Candidates[0].MatchType)
	assert.Equal(t, MatchColor, res.Candidates[ResultLimit-1].MatchType)

	for _, q := range store.queries {
		if len(q.BreedPatterns) > 0 || q.Color != "" {
			assert.Equal(t, AttributeStageLimit, q.Limit)
		} else {
			assert.Equal(t, TypeStageLimit, q.Limit)
		}
	}
}

func TestDeterministic(t *testing.T) {
	store := (&memStore{}).
		add(Record{ID: rid(3), Species: "cat", Color: "gray"}).
		add(Record{ID: rid(1), Species: "cat", Color: "gray"}).
		add(Record{ID: rid(2), Species: "cat"})
	index := staticIndex{hits: []vectorindex.Hit{{ID: rid(2), Score: 0.9}}}
	engine := NewEngine(index, store)
	req := Request{QueryVector: []float32{1}, Species: "cat", Color: "gray"}

	first, err := engine.FindMatches(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.FindMatches(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, rid(1), first.Candidates[1].RecordID)
	assert.Equal(t, rid(3), first.Candidates[2].RecordID)
}

func TestStoreUnavailableDegrades(t *testing.T) {
	store := (&memStore{findErr: errStoreDown}).add(Record{ID: rid(1), Species: "cat"})
	index := staticIndex{hits: []vectorindex.Hit{{ID: rid(1), Score: 0.9}}}

	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{
		QueryVector: []float32{1},
		Species:     "cat",
		Breed:       Label{Value: "persian", Confidence: 0.9},
		Color:       "white",
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, MatchVisual, res.Candidates[0].MatchType)
	assert.Equal(t, []string{"breed", "color", "type"}, res.Degraded)
}

func TestIndexFailureDegradesVisualOnly(t *testing.T) {
	store := (&memStore{}).add(Record{ID: rid(1), Species: "cat"})
	res, err := NewEngine(staticIndex{err: vectorindex.ErrDimensionMismatch}, store).
		FindMatches(context.Background(), Request{QueryVector: []float32{1}, Species: "cat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"visual"}, res.Degraded)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, MatchKind, res.Candidates[0].MatchType)
}

func TestNoImageSkipsVisualStage(t *testing.T) {
	store := (&memStore{}).add(Record{ID: rid(1), Species: "cat"})
	index := staticIndex{err: fmt.Errorf("must not be called")}
	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{Species: "cat"})
	require.NoError(t, err)
	assert.Empty(t, res.Degraded)
	assert.Len(t, res.Candidates, 1)
}

func TestStatusFilter(t *testing.T) {
	store := (&memStore{}).
		add(Record{ID: rid(1), Species: "cat", Status: "lost"}).
		add(Record{ID: rid(2), Species: "cat", Status: "found"})
	index := staticIndex{hits: []vectorindex.Hit{{ID: rid(1), Score: 0.9}, {ID: rid(2), Score: 0.9}}}

	res, err := NewEngine(index, store).FindMatches(context.Background(), Request{
		QueryVector: []float32{1},
		Status:      "found",
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, rid(2), res.Candidates[0].RecordID)
}

func TestMatchedFeatures(t *testing.T) {
	store := (&memStore{}).add(Record{ID: rid(1), Species: "cat", Features: []string{"collar", "Heterochromia"}})
	res, err := NewEngine(staticIndex{}, store).FindMatches(context.Background(), Request{
		Species:  "cat",
		Features: []string{"heterochromia", "scar"},
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, []string{"heterochromia"}, res.Candidates[0].MatchedFeatures)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(staticIndex{}, &memStore{}).FindMatches(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfigOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultLimit = 1
	store := (&memStore{}).add(Record{ID: rid(1), Species: "cat"}).add(Record{ID: rid(2), Species: "cat"})
	res, err := NewEngine(staticIndex{}, store, WithConfig(cfg)).FindMatches(context.Background(), Request{Species: "cat"})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, 2, res.TotalFound)
}
