package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"petfinder/internal/models/response_models"
	"petfinder/internal/vectorindex"
	"petfinder/pkg/utils"
)

type Rebuilder interface {
	Rebuild(ctx context.Context) (vectorindex.BuildStats, error)
}

type StatsSource interface {
	Stats() vectorindex.Stats
}

type IndexServiceInterface interface {
	Rebuild(ctx context.Context) (response_models.BuildInfo, error)
	Status() response_models.IndexStatus
}

type IndexService struct {
	rebuilder Rebuilder
	stats     StatsSource
	log       *zap.Logger
}

func NewIndexService(rebuilder Rebuilder, stats StatsSource, log *zap.Logger) IndexServiceInterface {
	return &IndexService{rebuilder: rebuilder, stats: stats, log: log.Named("index")}
}

// Rebuild runs a full rebuild synchronously. A rebuild that is already
// running is reported, not waited for.
func (s *IndexService) Rebuild(ctx context.Context) (response_models.BuildInfo, error) {
	stats, err := s.rebuilder.Rebuild(ctx)
	if err != nil {
		switch {
		case errors.Is(err, vectorindex.ErrBuildInProgress):
			return response_models.BuildInfo{}, utils.ErrIndexBuildInProgress
		case errors.Is(err, vectorindex.ErrEncoderUnavailable):
			return response_models.BuildInfo{}, fmt.Errorf("%w: %v", utils.ErrDependencyUnavailable, err)
		case errors.Is(err, utils.ErrDatabaseError):
			return response_models.BuildInfo{}, err
		}
		return response_models.BuildInfo{}, fmt.Errorf("%w: %v", utils.ErrIndexBuildFailed, err)
	}
	s.log.Info("manual rebuild finished", zap.Int("indexed", stats.Indexed), zap.Int("failed", stats.Failed))
	return toBuildInfo(stats), nil
}

func (s *IndexService) Status() response_models.IndexStatus {
	st := s.stats.Stats()
	out := response_models.IndexStatus{
		Count:     st.Count,
		Dimension: st.Dimension,
		Building:  st.Building,
		LastError: st.LastError,
	}
	if !st.BuiltAt.IsZero() {
		builtAt := st.BuiltAt
		out.BuiltAt = &builtAt
	}
	if st.LastBuild != nil {
		info := toBuildInfo(*st.LastBuild)
		out.LastBuild = &info
	}
	return out
}

func toBuildInfo(s vectorindex.BuildStats) response_models.BuildInfo {
	return response_models.BuildInfo{
		Total:      s.Total,
		Indexed:    s.Indexed,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		CacheHits:  s.CacheHits,
		Dimension:  s.Dimension,
		DurationMS: s.Duration.Milliseconds(),
		StartedAt:  s.StartedAt,
	}
}
