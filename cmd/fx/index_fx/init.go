package index_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"petfinder/internal/config"
	"petfinder/internal/embcache"
	"petfinder/internal/encoder"
	"petfinder/internal/indexer"
	"petfinder/internal/photos"
	"petfinder/internal/repositories"
	"petfinder/internal/vectorindex"
)

var Module = fx.Options(
	fx.Provide(
		provideIndex,
		provideIndexer,
		provideWorker,
	),
	fx.Invoke(startWorker),
)

type indexParams struct {
	fx.In

	Config  *config.Config
	Encoder encoder.Encoder `name:"index_encoder"`
	Cache   embcache.Cache
	Limiter *rate.Limiter `name:"encoder_limiter"`
	Log     *zap.Logger
}

func provideIndex(p indexParams) *vectorindex.Index {
	return vectorindex.New(p.Encoder,
		vectorindex.WithCache(p.Cache),
		vectorindex.WithModel(p.Config.Encoder.Fingerprint()),
		vectorindex.WithWorkers(p.Config.Index.Workers),
		vectorindex.WithLimiter(p.Limiter),
		vectorindex.WithLogger(p.Log))
}

func provideIndexer(ads repositories.AdvertisementRepository, src photos.Source, index *vectorindex.Index, log *zap.Logger) *indexer.Indexer {
	return indexer.New(ads, src, index, log)
}

func provideWorker(ix *indexer.Indexer, cfg *config.Config, log *zap.Logger) *indexer.Worker {
	return indexer.NewWorker(ix, cfg.Index.RebuildInterval, log)
}

// startWorker kicks off the initial build in the background; the server
// answers searches against an empty index until it lands.
func startWorker(lc fx.Lifecycle, w *indexer.Worker) {
	lc.Append(fx.StartStopHook(w.Start, w.Stop))
}
