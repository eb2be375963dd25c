package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"petfinder/internal/vectorindex"
)

type Rebuilder interface {
	Rebuild(ctx context.Context) (vectorindex.BuildStats, error)
}

// Worker runs rebuilds on a single goroutine. Triggers that arrive while a
// rebuild is pending or running collapse into one follow-up rebuild.
type Worker struct {
	rebuilder Rebuilder
	interval  time.Duration
	log       *zap.Logger

	trigger chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

func NewWorker(r Rebuilder, interval time.Duration, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		rebuilder: r,
		interval:  interval,
		log:       log.Named("rebuild-worker"),
		trigger:   make(chan struct{}, 1),
	}
}

func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Start builds once immediately, then on every trigger and tick.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	var tick <-chan time.Time
	if w.interval > 0 {
		t := time.NewTicker(w.interval)
		defer t.Stop()
		tick = t.C
	}

	w.once(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
		case <-tick:
		}
		w.once(ctx)
	}
}

func (w *Worker) once(ctx context.Context) {
	stats, err := w.rebuilder.Rebuild(ctx)
	switch {
	case err == nil:
		w.log.Info("rebuild finished", zap.Int("indexed", stats.Indexed), zap.Int("failed", stats.Failed))
	case errors.Is(err, vectorindex.ErrBuildInProgress):
		w.log.Debug("rebuild skipped, another build is running")
	case ctx.Err() != nil:
		w.log.Info("rebuild cancelled")
	default:
		w.log.Error("rebuild failed", zap.Error(err))
	}
}
