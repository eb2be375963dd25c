package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petfinder/internal/detector"
	"petfinder/internal/encoder"
	"petfinder/internal/matching"
	"petfinder/internal/models/response_models"
	"petfinder/pkg/utils"
)

// DetectedSpeciesThreshold is the minimum confidence for a detected species
// to be used as a filter. Below it the species is treated as inconclusive.
const DetectedSpeciesThreshold = 0.5

// SearchInput is a search request after transport decoding. Exactly one of
// Image, Payload or QueryText is normally set; Image wins over Payload.
type SearchInput struct {
	Image           encoder.Image
	Payload         string
	QueryText       string
	Species         string
	Breed           string
	BreedConfidence *float64
	Color           string
	Features        []string
	Status          string
}

type Matcher interface {
	FindMatches(ctx context.Context, req matching.Request) (matching.Result, error)
}

type SearchConfig struct {
	EncodeTimeout time.Duration
	DetectTimeout time.Duration
	// MediaURL prefixes photo references in responses.
	MediaURL string
}

type SearchServiceInterface interface {
	Search(ctx context.Context, in SearchInput) (response_models.SearchResponse, error)
}

type SearchService struct {
	encoder  encoder.Encoder
	detector detector.Detector
	matcher  Matcher
	cfg      SearchConfig
	log      *zap.Logger
}

func NewSearchService(enc encoder.Encoder, det detector.Detector, matcher Matcher, cfg SearchConfig, log *zap.Logger) SearchServiceInterface {
	if det == nil {
		det = detector.None{}
	}
	if cfg.EncodeTimeout <= 0 {
		cfg.EncodeTimeout = 15 * time.Second
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = 20 * time.Second
	}
	return &SearchService{
		encoder:  enc,
		detector: det,
		matcher:  matcher,
		cfg:      cfg,
		log:      log.Named("search"),
	}
}

func (s *SearchService) Search(ctx context.Context, in SearchInput) (response_models.SearchResponse, error) {
	var (
		vec      encoder.Vector
		analysis detector.Analysis
		err      error
	)

	img, err := resolveImage(in)
	switch {
	case err != nil:
		return response_models.SearchResponse{}, err
	case img != nil:
		vec, analysis, err = s.analyseImage(ctx, img)
	case strings.TrimSpace(in.QueryText) != "":
		vec, err = s.embedText(ctx, in.QueryText)
	default:
		return response_models.SearchResponse{}, utils.ErrImageMissing
	}
	if err != nil {
		return response_models.SearchResponse{}, err
	}

	req := resolveRequest(in, analysis)
	req.QueryVector = vec

	res, err := s.matcher.FindMatches(ctx, req)
	if err != nil {
		return response_models.SearchResponse{}, fmt.Errorf("%w: %v", utils.ErrDependencyUnavailable, err)
	}
	if len(res.Degraded) > 0 {
		s.log.Warn("search degraded", zap.Strings("stages", res.Degraded))
	}
	return s.compose(analysis, res), nil
}

func resolveImage(in SearchInput) (encoder.Image, error) {
	if in.Image != nil {
		return in.Image, nil
	}
	if in.Payload == "" {
		return nil, nil
	}
	raw, err := encoder.ParsePayload(in.Payload)
	if err != nil {
		return nil, badInput(err)
	}
	return raw, nil
}

// analyseImage encodes the photo and runs attribute detection in parallel.
// Detection failures are logged and yield an empty analysis; encoding
// failures fail the search.
func (s *SearchService) analyseImage(ctx context.Context, img encoder.Image) (encoder.Vector, detector.Analysis, error) {
	norm, err := encoder.Normalize(img)
	if err != nil {
		return nil, detector.Analysis{}, badInput(err)
	}

	encodeCtx, cancel := context.WithTimeout(ctx, s.cfg.EncodeTimeout)
	defer cancel()
	future := encoder.EmbedAsync(encodeCtx, s.encoder, encoder.RawBytes(norm.Bytes))

	var (
		vec      encoder.Vector
		analysis detector.Analysis
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := future.Await(gctx)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	g.Go(func() error {
		detectCtx, cancel := context.WithTimeout(gctx, s.cfg.DetectTimeout)
		defer cancel()
		a, err := s.detector.Detect(detectCtx, detector.Input{
			Image:  norm,
			Vector: future.Await,
		})
		if err != nil {
			s.log.Warn("attribute detection failed", zap.Error(err))
			return nil
		}
		analysis = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, detector.Analysis{}, encodeError(err)
	}
	return vec, analysis, nil
}

func (s *SearchService) embedText(ctx context.Context, text string) (encoder.Vector, error) {
	te, ok := encoder.AsTextEncoder(s.encoder)
	if !ok {
		return nil, utils.ErrTextUnsupported
	}
	encodeCtx, cancel := context.WithTimeout(ctx, s.cfg.EncodeTimeout)
	defer cancel()
	vec, err := encoder.EmbedTextAsync(encodeCtx, te, strings.TrimSpace(text)).Await(encodeCtx)
	if err != nil {
		return nil, encodeError(err)
	}
	return vec, nil
}

func badInput(err error) error {
	switch {
	case errors.Is(err, encoder.ErrEmptyPayload):
		return fmt.Errorf("%w: %v", utils.ErrImageMissing, err)
	case errors.Is(err, encoder.ErrInvalidDataURL), errors.Is(err, encoder.ErrNotBase64):
		return fmt.Errorf("%w: %v", utils.ErrImageNotBase64, err)
	case errors.Is(err, encoder.ErrImageTooLarge):
		return fmt.Errorf("%w: %v", utils.ErrImageTooLarge, err)
	case encoder.IsBadInput(err):
		return fmt.Errorf("%w: %v", utils.ErrImageUndecodable, err)
	}
	return fmt.Errorf("%w: %v", utils.ErrBadInput, err)
}

func encodeError(err error) error {
	switch {
	case errors.Is(err, encoder.ErrRejected):
		return fmt.Errorf("%w: %v", utils.ErrImageUndecodable, err)
	case errors.Is(err, encoder.ErrTextUnsupported):
		return fmt.Errorf("%w: %v", utils.ErrTextUnsupported, err)
	}
	return fmt.Errorf("%w: %v", utils.ErrDependencyUnavailable, err)
}

// resolveRequest merges declared attributes with detected ones. Declared
// values always win. A declared breed without a confidence is trusted
// fully; a detected species only filters when it is confident enough. A
// detected breed is dropped when the photo was read as another species than
// the one declared.
func resolveRequest(in SearchInput, a detector.Analysis) matching.Request {
	req := matching.Request{
		Species:  strings.TrimSpace(in.Species),
		Color:    strings.TrimSpace(in.Color),
		Status:   strings.TrimSpace(in.Status),
		Features: in.Features,
	}
	declared := req.Species
	if req.Species == "" && a.Species.Confidence >= DetectedSpeciesThreshold {
		req.Species = a.Species.Value
	}
	sameSpecies := declared == "" || strings.EqualFold(declared, strings.TrimSpace(a.Species.Value))

	if breed := strings.TrimSpace(in.Breed); breed != "" {
		conf := 1.0
		if in.BreedConfidence != nil {
			conf = *in.BreedConfidence
		}
		req.Breed = matching.Label{Value: breed, Confidence: conf}
	} else if !a.Breed.Empty() && sameSpecies {
		req.Breed = matching.Label{Value: a.Breed.Value, Confidence: a.Breed.Confidence}
	}

	if req.Color == "" {
		req.Color = a.Color.Value
	}
	if len(req.Features) == 0 {
		req.Features = a.Features
	}
	return req
}

func (s *SearchService) compose(a detector.Analysis, res matching.Result) response_models.SearchResponse {
	pets := make([]response_models.SimilarPet, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		r := c.Record
		pets = append(pets, response_models.SimilarPet{
			ID:              c.RecordID.String(),
			Title:           r.Title,
			Description:     r.Description,
			PhotoURL:        s.photoURL(r.PhotoRef),
			Type:            r.Species,
			Breed:           r.Breed,
			Color:           r.Color,
			Sex:             r.Sex,
			Status:          r.Status,
			Author:          r.Author,
			Phone:           r.Phone,
			Location:        r.Location,
			Latitude:        r.Latitude,
			Longitude:       r.Longitude,
			CreatedAt:       r.CreatedAt,
			Similarity:      c.Similarity,
			MatchType:       string(c.MatchType),
			MatchedFeatures: c.MatchedFeatures,
		})
	}

	features := a.Features
	if features == nil {
		features = []string{}
	}
	return response_models.SearchResponse{
		Analysis: response_models.Analysis{
			Species:  toLabel(a.Species),
			Breed:    toLabel(a.Breed),
			Color:    toLabel(a.Color),
			Features: features,
			Source:   a.Source,
		},
		SimilarPets: pets,
		TotalFound:  res.TotalFound,
		Degraded:    res.Degraded,
	}
}

func (s *SearchService) photoURL(ref string) string {
	if ref == "" || s.cfg.MediaURL == "" {
		return ref
	}
	return strings.TrimRight(s.cfg.MediaURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

func toLabel(l detector.Label) *response_models.Label {
	if l.Empty() {
		return nil
	}
	return &response_models.Label{Label: l.Value, Confidence: l.Confidence}
}
