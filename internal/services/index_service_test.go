package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petfinder/internal/vectorindex"
	"petfinder/pkg/utils"
)

type stubRebuilder struct {
	stats vectorindex.BuildStats
	err   error
}

func (r stubRebuilder) Rebuild(context.Context) (vectorindex.BuildStats, error) {
	return r.stats, r.err
}

type stubStats vectorindex.Stats

func (s stubStats) Stats() vectorindex.Stats { return vectorindex.Stats(s) }

func TestIndexRebuildErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"in progress", vectorindex.ErrBuildInProgress, utils.ErrIndexBuildInProgress},
		{"encoder down", vectorindex.ErrEncoderUnavailable, utils.ErrDependencyUnavailable},
		{"store down", fmt.Errorf("indexer: list records: %w", utils.ErrDatabaseError), utils.ErrDatabaseError},
		{"other", errors.New("boom"), utils.ErrIndexBuildFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewIndexService(stubRebuilder{err: tt.err}, stubStats{}, zap.NewNop())
			_, err := svc.Rebuild(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIndexRebuildReportsStats(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := NewIndexService(stubRebuilder{stats: vectorindex.BuildStats{
		Total: 10, Indexed: 7, Skipped: 1, Failed: 2, CacheHits: 5, Dimension: 512,
		Duration: 1500 * time.Millisecond, StartedAt: started,
	}}, stubStats{}, zap.NewNop())

	info, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, info.Indexed)
	assert.Equal(t, 2, info.Failed)
	assert.Equal(t, int64(1500), info.DurationMS)
	assert.Equal(t, started, info.StartedAt)
}

func TestIndexStatus(t *testing.T) {
	t.Run("cold", func(t *testing.T) {
		st := NewIndexService(stubRebuilder{}, stubStats{}, zap.NewNop()).Status()
		assert.Zero(t, st.Count)
		assert.Nil(t, st.BuiltAt)
		assert.Nil(t, st.LastBuild)
	})

	t.Run("built", func(t *testing.T) {
		builtAt := time.Now()
		st := NewIndexService(stubRebuilder{}, stubStats{
			Count:     3,
			Dimension: 512,
			BuiltAt:   builtAt,
			LastBuild: &vectorindex.BuildStats{Indexed: 3},
			LastError: "encoder unavailable",
		}, zap.NewNop()).Status()
		assert.Equal(t, 3, st.Count)
		require.NotNil(t, st.BuiltAt)
		assert.True(t, builtAt.Equal(*st.BuiltAt))
		require.NotNil(t, st.LastBuild)
		assert.Equal(t, 3, st.LastBuild.Indexed)
		assert.Equal(t, "encoder unavailable", st.LastError)
	})
}
