package embcache_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"petfinder/internal/config"
	"petfinder/internal/embcache"
	"petfinder/internal/repositories"
)

var Module = fx.Provide(provideCache)

func provideCache(lc fx.Lifecycle, cfg *config.Config, repo repositories.PhotoEmbeddingRepository, log *zap.Logger) (embcache.Cache, error) {
	var cache embcache.Cache
	switch cfg.Cache.Backend {
	case "badger":
		b, err := embcache.NewBadger(embcache.BadgerOptions{Dir: cfg.Cache.BadgerPath, Logger: log})
		if err != nil {
			return nil, err
		}
		cache = b
	case "postgres":
		cache = embcache.NewPostgres(repo)
	default:
		cache = embcache.Nop{}
	}
	lc.Append(fx.StopHook(cache.Close))
	return cache, nil
}
