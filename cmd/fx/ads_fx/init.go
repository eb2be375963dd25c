package ads_fx

import (
	"go.uber.org/fx"
	"petfinder/internal/repositories"
)

var Module = fx.Provide(
	repositories.NewAdvertisementRepository,
	repositories.NewPhotoEmbeddingRepository,
	repositories.NewAccountRepository)
