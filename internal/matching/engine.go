// Package matching merges visual similarity hits with attribute matches
// into one ranked candidate list.
package matching

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	BreedMatchSimilarity     = 0.85
	ColorMatchSimilarity     = 0.6
	TypeMatchSimilarity      = 0.4
	BreedConfidenceThreshold = 0.7
	VisualTopN               = 20
	AttributeStageLimit      = 10
	TypeStageLimit           = 5
	ResultLimit              = 15
	MinVisualSimilarity      = 0.75
)

// Config holds the tunables of the fusion. DefaultConfig matches the
// production constants.
type Config struct {
	BreedMatchSimilarity     float64    `yaml:"breed_match_similarity"`
	ColorMatchSimilarity     float64    `yaml:"color_match_similarity"`
	TypeMatchSimilarity      float64    `yaml:"type_match_similarity"`
	BreedConfidenceThreshold float64    `yaml:"breed_confidence_threshold"`
	VisualTopN               int        `yaml:"visual_top_n"`
	AttributeStageLimit      int        `yaml:"attribute_stage_limit"`
	TypeStageLimit           int        `yaml:"type_stage_limit"`
	ResultLimit              int        `yaml:"result_limit"`
	MinVisualSimilarity      float64    `yaml:"min_visual_similarity"`
	BreedFamilies            [][]string `yaml:"breed_families"`
}

func DefaultConfig() Config {
	return Config{
		BreedMatchSimilarity:     BreedMatchSimilarity,
		ColorMatchSimilarity:     ColorMatchSimilarity,
		TypeMatchSimilarity:      TypeMatchSimilarity,
		BreedConfidenceThreshold: BreedConfidenceThreshold,
		VisualTopN:               VisualTopN,
		AttributeStageLimit:      AttributeStageLimit,
		TypeStageLimit:           TypeStageLimit,
		ResultLimit:              ResultLimit,
		MinVisualSimilarity:      MinVisualSimilarity,
		BreedFamilies:            DefaultBreedFamilies,
	}
}

type Engine struct {
	index    VectorSearcher
	store    AttributeStore
	cfg      Config
	families BreedFamilies
	log      *zap.Logger
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(index VectorSearcher, store AttributeStore, opts ...Option) *Engine {
	e := &Engine{index: index, store: store, cfg: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.cfg.BreedFamilies) == 0 {
		e.cfg.BreedFamilies = DefaultBreedFamilies
	}
	e.families = NewBreedFamilies(e.cfg.BreedFamilies)
	e.log = e.log.Named("matching")
	return e
}

// FindMatches runs the visual, breed, color and type stages in priority
// order. A failing stage contributes nothing and is reported in
// Result.Degraded; only context cancellation fails the call.
func (e *Engine) FindMatches(ctx context.Context, req Request) (Result, error) {
	req.Species = normalize(req.Species)
	req.Color = normalize(req.Color)
	req.Status = normalize(req.Status)

	m := newMerger()
	var degraded []string
	run := func(stage string, fn func() ([]Candidate, error)) {
		cands, err := fn()
		if err != nil {
			degraded = append(degraded, stage)
			e.log.Warn("stage degraded", zap.String("stage", stage), zap.Error(err))
			return
		}
		m.add(cands)
	}

	if len(req.QueryVector) > 0 {
		run("visual", func() ([]Candidate, error) { return e.visualStage(ctx, req) })
	}
	if e.breedEligible(req.Breed) {
		run("breed", func() ([]Candidate, error) {
			return e.attributeStage(ctx, req, Query{
				Species:       req.Species,
				BreedPatterns: e.families.Patterns(req.Breed.Value),
				Status:        req.Status,
				Limit:         e.cfg.AttributeStageLimit,
			}, MatchBreed, e.cfg.BreedMatchSimilarity)
		})
	}
	if req.Color != "" {
		run("color", func() ([]Candidate, error) {
			return e.attributeStage(ctx, req, Query{
				Species: req.Species,
				Color:   req.Color,
				Status:  req.Status,
				Limit:   e.cfg.AttributeStageLimit,
			}, MatchColor, e.cfg.ColorMatchSimilarity)
		})
	}
	run("type", func() ([]Candidate, error) {
		return e.attributeStage(ctx, req, Query{
			Species: req.Species,
			Status:  req.Status,
			Limit:   e.cfg.TypeStageLimit,
		}, MatchKind, e.cfg.TypeMatchSimilarity)
	})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cands := m.sorted()
	res := Result{TotalFound: len(cands), Degraded: degraded}
	if e.cfg.ResultLimit > 0 && len(cands) > e.cfg.ResultLimit {
		cands = cands[:e.cfg.ResultLimit]
	}
	res.Candidates = cands
	return res, nil
}

func (e *Engine) breedEligible(breed Label) bool {
	if strings.TrimSpace(breed.Value) == "" || IsGenericBreed(breed.Value) {
		return false
	}
	return breed.Confidence > e.cfg.BreedConfidenceThreshold
}

func (e *Engine) visualStage(ctx context.Context, req Request) ([]Candidate, error) {
	hits, err := e.index.Search(req.QueryVector, e.cfg.VisualTopN)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		if float64(h.Score) >= e.cfg.MinVisualSimilarity {
			ids = append(ids, h.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := e.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	out := make([]Candidate, 0, len(ids))
	for _, h := range hits {
		if float64(h.Score) < e.cfg.MinVisualSimilarity {
			continue
		}
		rec, ok := byID[h.ID]
		if !ok {
			continue
		}
		// A visually similar record of another species is a false positive.
		if req.Species != "" && normalize(rec.Species) != req.Species {
			continue
		}
		if req.Status != "" && normalize(rec.Status) != req.Status {
			continue
		}
		out = append(out, Candidate{
			RecordID:        rec.ID,
			Similarity:      clamp01(float64(h.Score)),
			MatchType:       MatchVisual,
			Record:          rec,
			MatchedFeatures: matchedFeatures(req.Features, rec.Features),
		})
	}
	return out, nil
}

func (e *Engine) attributeStage(ctx context.Context, req Request, q Query, mt MatchType, sim float64) ([]Candidate, error) {
	records, err := e.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		out = append(out, Candidate{
			RecordID:        rec.ID,
			Similarity:      sim,
			MatchType:       mt,
			Record:          rec,
			MatchedFeatures: matchedFeatures(req.Features, rec.Features),
		})
	}
	return out, nil
}

// merger keeps the first candidate seen for each record.
type merger struct {
	seen  map[uuid.UUID]struct{}
	cands []Candidate
}

func newMerger() *merger {
	return &merger{seen: make(map[uuid.UUID]struct{})}
}

func (m *merger) add(cands []Candidate) {
	for _, c := range cands {
		if _, dup := m.seen[c.RecordID]; dup {
			continue
		}
		m.seen[c.RecordID] = struct{}{}
		m.cands = append(m.cands, c)
	}
}

func (m *merger) sorted() []Candidate {
	out := append([]Candidate(nil), m.cands...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if pa, pb := a.MatchType.Priority(), b.MatchType.Priority(); pa != pb {
			return pa < pb
		}
		return a.RecordID.String() < b.RecordID.String()
	})
	return out
}

func matchedFeatures(want, have []string) []string {
	if len(want) == 0 || len(have) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(have))
	for _, f := range have {
		set[normalize(f)] = struct{}{}
	}
	var out []string
	for _, f := range want {
		if _, ok := set[normalize(f)]; ok {
			out = append(out, f)
		}
	}
	return out
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
