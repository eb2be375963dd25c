// Package vectorindex holds the in-memory photo embedding index.
//
// The index is an immutable snapshot behind an atomic pointer. Search reads
// whatever snapshot is current without locking; Build encodes a fresh
// snapshot off to the side and swaps it in only when it succeeds, so a
// failed or cancelled build leaves the previous index serving.
package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"petfinder/internal/encoder"
)

var (
	ErrBuildInProgress    = errors.New("vectorindex: build already in progress")
	ErrEncoderUnavailable = errors.New("vectorindex: encoder unavailable for every record")
	ErrDimensionMismatch  = errors.New("vectorindex: dimension mismatch")
)

// Item is one record to index. Items without an image are skipped.
type Item struct {
	ID       uuid.UUID
	Image    encoder.Image
	CacheKey string
}

// Hit is a search result; Score is the inner product with the query.
type Hit struct {
	ID    uuid.UUID
	Score float32
}

type BuildStats struct {
	Total     int           `json:"total"`
	Indexed   int           `json:"indexed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	CacheHits int           `json:"cache_hits"`
	Dimension int           `json:"dimension"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

type Stats struct {
	Count     int         `json:"count"`
	Dimension int         `json:"dimension"`
	BuiltAt   time.Time   `json:"built_at"`
	Building  bool        `json:"building"`
	LastBuild *BuildStats `json:"last_build,omitempty"`
	LastError string      `json:"last_error,omitempty"`
}

// Cache stores embeddings by content key so unchanged photos are not
// re-encoded on every build.
type Cache interface {
	Get(ctx context.Context, key string) (encoder.Vector, bool, error)
	Put(ctx context.Context, key string, recordID uuid.UUID, vec encoder.Vector) error
}

type snapshot struct {
	ids     []uuid.UUID
	pos     map[uuid.UUID]int
	data    []float32
	dim     int
	builtAt time.Time
}

// put adds or replaces the vector for id. len(vec) must equal s.dim.
func (s *snapshot) put(id uuid.UUID, vec []float32) {
	if at, ok := s.pos[id]; ok {
		copy(s.data[at*s.dim:(at+1)*s.dim], vec)
		return
	}
	s.pos[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.data = append(s.data, vec...)
}

func (s *snapshot) count() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

type Index struct {
	enc     encoder.Encoder
	cache   Cache
	model   string
	workers int
	limiter *rate.Limiter
	log     *zap.Logger

	snap atomic.Pointer[snapshot]

	buildMu  sync.Mutex
	building atomic.Bool

	// publishMu orders snapshot replacement between Build and Insert.
	publishMu sync.Mutex
	// pending holds vectors inserted since the last published build. The
	// item list a build encodes may predate them, so they are replayed onto
	// the new snapshot before it is published.
	pending map[uuid.UUID]encoder.Vector

	lastMu  sync.RWMutex
	last    *BuildStats
	lastErr error
}

type Option func(*Index)

func WithCache(c Cache) Option { return func(ix *Index) { ix.cache = c } }

// WithModel scopes cache keys to an encoder identity, so vectors produced by
// a different model or dimension are never served from the cache.
func WithModel(fingerprint string) Option { return func(ix *Index) { ix.model = fingerprint } }

func WithWorkers(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithLimiter throttles encoder calls made during Build and Insert.
func WithLimiter(l *rate.Limiter) Option { return func(ix *Index) { ix.limiter = l } }

func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

func New(enc encoder.Encoder, opts ...Option) *Index {
	ix := &Index{enc: enc, workers: 4, log: zap.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	ix.log = ix.log.Named("vectorindex")
	return ix
}

type encoded struct {
	vec      encoder.Vector
	err      error
	cacheHit bool
	skipped  bool
}

// Build encodes every item and atomically publishes the result. Per-item
// failures are logged and skipped. When every item with an image failed and
// the encoder was unreachable, the previous snapshot is kept and
// ErrEncoderUnavailable is returned. Vectors added with Insert since the last
// publish are carried into the new snapshot. Only one build runs at a time;
// a concurrent call gets ErrBuildInProgress.
func (ix *Index) Build(ctx context.Context, items []Item) (BuildStats, error) {
	if !ix.buildMu.TryLock() {
		return BuildStats{}, ErrBuildInProgress
	}
	defer ix.buildMu.Unlock()
	ix.building.Store(true)
	defer ix.building.Store(false)

	stats := BuildStats{Total: len(items), StartedAt: time.Now()}
	results := ix.encodeAll(ctx, items)

	if err := ctx.Err(); err != nil {
		stats.Duration = time.Since(stats.StartedAt)
		ix.recordBuild(stats, err)
		return stats, fmt.Errorf("vectorindex: build cancelled: %w", err)
	}

	next := &snapshot{pos: make(map[uuid.UUID]int, len(items)), builtAt: time.Now()}
	unavailable := 0
	for i, r := range results {
		item := items[i]
		switch {
		case r.skipped:
			stats.Skipped++
			continue
		case r.err != nil:
			stats.Failed++
			if errors.Is(r.err, encoder.ErrUnavailable) {
				unavailable++
			}
			ix.log.Warn("encode failed", zap.Stringer("record_id", item.ID), zap.Error(r.err))
			continue
		case len(r.vec) == 0:
			stats.Failed++
			ix.log.Warn("empty embedding", zap.Stringer("record_id", item.ID))
			continue
		}
		if next.dim == 0 {
			next.dim = len(r.vec)
		}
		if len(r.vec) != next.dim {
			stats.Failed++
			ix.log.Warn("dimension mismatch",
				zap.Stringer("record_id", item.ID),
				zap.Int("got", len(r.vec)), zap.Int("want", next.dim))
			continue
		}
		if r.cacheHit {
			stats.CacheHits++
		}
		next.put(item.ID, r.vec)
	}
	if len(next.ids) == 0 && stats.Failed > 0 && unavailable > 0 {
		stats.Duration = time.Since(stats.StartedAt)
		ix.recordBuild(stats, ErrEncoderUnavailable)
		ix.log.Error("build failed, keeping previous index",
			zap.Int("failed", stats.Failed), zap.Int("previous_count", ix.snap.Load().count()))
		return stats, ErrEncoderUnavailable
	}

	ix.publishMu.Lock()
	ix.replayPending(next)
	ix.snap.Store(next)
	ix.publishMu.Unlock()

	stats.Indexed = len(next.ids)
	stats.Dimension = next.dim
	stats.Duration = time.Since(stats.StartedAt)

	ix.recordBuild(stats, nil)
	ix.log.Info("index built",
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// replayPending applies inserts made since the last publish. They are at
// least as new as anything the build read, so they win. Callers hold
// publishMu.
func (ix *Index) replayPending(next *snapshot) {
	for id, vec := range ix.pending {
		if next.dim == 0 {
			next.dim = len(vec)
		}
		if len(vec) != next.dim {
			ix.log.Warn("dropping pending insert: dimension mismatch",
				zap.Stringer("record_id", id), zap.Int("got", len(vec)), zap.Int("want", next.dim))
			continue
		}
		next.put(id, vec)
	}
	ix.pending = nil
}

func (ix *Index) encodeAll(ctx context.Context, items []Item) []encoded {
	results := make([]encoded, len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := ix.workers
	if workers > len(items) {
		workers = len(items)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = ix.encodeOne(ctx, items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (ix *Index) encodeOne(ctx context.Context, item Item) encoded {
	if item.Image == nil {
		return encoded{skipped: true}
	}
	key := ix.cacheKey(item)
	if ix.cache != nil && key != "" {
		vec, ok, err := ix.cache.Get(ctx, key)
		if err != nil {
			ix.log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok && len(vec) > 0 {
			return encoded{vec: vec, cacheHit: true}
		}
	}
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return encoded{err: fmt.Errorf("%w: %v", encoder.ErrUnavailable, err)}
		}
	}
	vec, err := ix.enc.Embed(ctx, item.Image)
	if err != nil {
		return encoded{err: err}
	}
	if ix.cache != nil && key != "" {
		if err := ix.cache.Put(ctx, key, item.ID, vec); err != nil {
			ix.log.Debug("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return encoded{vec: vec}
}

// cacheKey folds the model fingerprint into the content key. The result is
// still a hex sha256 so it fits the same storage column.
func (ix *Index) cacheKey(item Item) string {
	if item.CacheKey == "" || ix.model == "" {
		return item.CacheKey
	}
	sum := sha256.Sum256([]byte(ix.model + "\x00" + item.CacheKey))
	return hex.EncodeToString(sum[:])
}

func (ix *Index) recordBuild(stats BuildStats, err error) {
	ix.lastMu.Lock()
	defer ix.lastMu.Unlock()
	s := stats
	ix.last = &s
	ix.lastErr = err
}

// Insert encodes one item and adds it to the current snapshot, replacing
// any vector already stored for the same id. Inserts are carried over into
// the next snapshot Build publishes, so one made while a build is loading
// or encoding is not lost. There is no incremental delete.
func (ix *Index) Insert(ctx context.Context, item Item) error {
	r := ix.encodeOne(ctx, item)
	if r.skipped {
		return nil
	}
	if r.err != nil {
		return r.err
	}

	ix.publishMu.Lock()
	defer ix.publishMu.Unlock()

	old := ix.snap.Load()
	dim := len(r.vec)
	if old.count() > 0 && old.dim != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, dim, old.dim)
	}

	next := &snapshot{dim: dim, builtAt: time.Now()}
	if old != nil {
		next.ids = append([]uuid.UUID(nil), old.ids...)
		next.data = append([]float32(nil), old.data...)
		next.builtAt = old.builtAt
	}
	next.pos = make(map[uuid.UUID]int, len(next.ids)+1)
	for i, id := range next.ids {
		next.pos[id] = i
	}
	next.put(item.ID, r.vec)
	ix.snap.Store(next)
	if ix.pending == nil {
		ix.pending = make(map[uuid.UUID]encoder.Vector)
	}
	ix.pending[item.ID] = r.vec
	return nil
}

// Search returns the k stored vectors with the highest inner product with
// vec, best first, ties broken by ascending id. vec must be unit length.
// An empty or never-built index yields no hits.
func (ix *Index) Search(vec []float32, k int) ([]Hit, error) {
	s := ix.snap.Load()
	if k <= 0 || s.count() == 0 {
		return nil, nil
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.dim)
	}
	if k > len(s.ids) {
		k = len(s.ids)
	}

	better := func(a, b Hit) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return lessID(a.ID, b.ID)
	}

	best := make([]Hit, 0, k)
	worst := -1
	findWorst := func() {
		worst = 0
		for i := 1; i < len(best); i++ {
			if better(best[worst], best[i]) {
				worst = i
			}
		}
	}

	for i, id := range s.ids {
		h := Hit{ID: id, Score: dot(s.data[i*s.dim:(i+1)*s.dim], vec)}
		if len(best) < k {
			best = append(best, h)
			if len(best) == k {
				findWorst()
			}
			continue
		}
		if !better(h, best[worst]) {
			continue
		}
		best[worst] = h
		findWorst()
	}

	sort.Slice(best, func(i, j int) bool { return better(best[i], best[j]) })
	return best, nil
}

func (ix *Index) Stats() Stats {
	s := ix.snap.Load()
	st := Stats{Count: s.count(), Building: ix.building.Load()}
	if s != nil {
		st.Dimension = s.dim
		st.BuiltAt = s.builtAt
	}
	ix.lastMu.RLock()
	defer ix.lastMu.RUnlock()
	if ix.last != nil {
		last := *ix.last
		st.LastBuild = &last
	}
	if ix.lastErr != nil {
		st.LastError = ix.lastErr.Error()
	}
	return st
}

// Len is the number of vectors in the current snapshot.
func (ix *Index) Len() int { return ix.snap.Load().count() }

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func lessID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
