package matcher_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"petfinder/internal/config"
	"petfinder/internal/detector"
	"petfinder/internal/encoder"
	"petfinder/internal/indexer"
	"petfinder/internal/matching"
	"petfinder/internal/repositories"
	"petfinder/internal/services"
	"petfinder/internal/vectorindex"
)

var Module = fx.Provide(
	provideEngine,
	provideSearchService,
	provideIndexService,
	provideAccountService)

func provideEngine(index *vectorindex.Index, ads repositories.AdvertisementRepository, cfg *config.Config, log *zap.Logger) *matching.Engine {
	return matching.NewEngine(index, ads,
		matching.WithConfig(cfg.Matching),
		matching.WithLogger(log))
}

func provideSearchService(enc encoder.Encoder, det detector.Detector, engine *matching.Engine, cfg *config.Config, log *zap.Logger) services.SearchServiceInterface {
	return services.NewSearchService(enc, det, engine, services.SearchConfig{
		EncodeTimeout: cfg.Encoder.Timeout,
		DetectTimeout: cfg.Detector.Timeout,
		MediaURL:      cfg.Photos.MediaURL,
	}, log)
}

func provideIndexService(ix *indexer.Indexer, index *vectorindex.Index, log *zap.Logger) services.IndexServiceInterface {
	return services.NewIndexService(ix, index, log)
}

func provideAccountService(repo repositories.AccountRepository, cfg *config.Config, log *zap.Logger) services.AccountServiceInterface {
	return services.NewAccountService(repo, services.AuthConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}, log)
}
