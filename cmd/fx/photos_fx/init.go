package photos_fx

import (
	"go.uber.org/fx"

	"petfinder/internal/config"
	"petfinder/internal/photos"
)

var Module = fx.Provide(provideSource)

func provideSource(cfg *config.Config) (photos.Source, error) {
	if cfg.Photos.Source == "s3" {
		client := photos.NewS3Client(photos.S3Config{
			Region:    cfg.Photos.S3.Region,
			Endpoint:  cfg.Photos.S3.Endpoint,
			AccessKey: cfg.Photos.S3.AccessKey,
			SecretKey: cfg.Photos.S3.SecretKey,
		})
		return photos.NewS3(client, cfg.Photos.S3.Bucket, cfg.Photos.S3.Prefix), nil
	}
	return photos.NewFS(cfg.Photos.MediaRoot)
}
