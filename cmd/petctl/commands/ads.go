package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"petfinder/internal/config"
	"petfinder/internal/indexer"
	"petfinder/internal/infra"
	"petfinder/internal/models/db_models"
	"petfinder/internal/repositories"
)

// seedAd is one advertisement in a seed file.
type seedAd struct {
	Title           string   `yaml:"title" json:"title"`
	Description     string   `yaml:"description" json:"description"`
	Author          string   `yaml:"author" json:"author"`
	Phone           string   `yaml:"phone" json:"phone"`
	Photo           string   `yaml:"photo" json:"photo"`
	Type            string   `yaml:"type" json:"type"`
	Breed           string   `yaml:"breed" json:"breed"`
	Color           string   `yaml:"color" json:"color"`
	Sex             string   `yaml:"sex" json:"sex"`
	SpecialFeatures []string `yaml:"special_features" json:"special_features"`
	Status          string   `yaml:"status" json:"status"`
	Latitude        *float64 `yaml:"latitude" json:"latitude"`
	Longitude       *float64 `yaml:"longitude" json:"longitude"`
	Location        string   `yaml:"location" json:"location"`
}

func (s seedAd) model() *db_models.Advertisement {
	return &db_models.Advertisement{
		Title:           s.Title,
		Description:     s.Description,
		Author:          s.Author,
		Phone:           s.Phone,
		Photo:           s.Photo,
		Type:            strings.ToLower(s.Type),
		Breed:           s.Breed,
		Color:           strings.ToLower(s.Color),
		Sex:             s.Sex,
		SpecialFeatures: pq.StringArray(s.SpecialFeatures),
		Status:          strings.ToLower(s.Status),
		Latitude:        s.Latitude,
		Longitude:       s.Longitude,
		Location:        s.Location,
	}
}

func (s seedAd) validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if s.Type == "" {
		return fmt.Errorf("type is required")
	}
	return nil
}

// backend is the direct data access used by the data commands.
type backend struct {
	ads repositories.AdvertisementRepository
	nc  *nats.Conn
	log *zap.Logger
}

func openBackend(ctx context.Context) (*backend, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := infra.NewLogger(cfg.Logging.Level, "console")
	if err != nil {
		return nil, nil, err
	}
	db, err := infra.InitPostgresql(cfg.Database.URL, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := infra.Migrate(ctx, db); err != nil {
			infra.ClosePostgresql(db, log)
			return nil, nil, err
		}
	}
	nc, err := infra.ConnectNATS(cfg.NATS.URL, log)
	if err != nil {
		infra.ClosePostgresql(db, log)
		return nil, nil, err
	}

	closeFn := func() {
		if nc != nil {
			_ = nc.Drain()
		}
		infra.ClosePostgresql(db, log)
		_ = log.Sync()
	}
	return &backend{ads: repositories.NewAdvertisementRepository(db), nc: nc, log: log}, closeFn, nil
}

// notify tells running servers about a change. Without NATS the next
// periodic rebuild picks it up.
func (b *backend) notify(ctx context.Context, id uuid.UUID, action indexer.Action) {
	if b.nc == nil {
		return
	}
	if err := indexer.PublishAdChanged(ctx, b.nc, indexer.AdChanged{ID: id, Action: action}); err != nil {
		b.log.Warn("publish failed", zap.Stringer("record_id", id), zap.Error(err))
	}
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Create advertisements from a YAML or JSON file",
	Long: `Create advertisements from a file holding a list of ads. Photo paths
are references resolved by the server's photo source (MEDIA_ROOT or S3).

Example file:
  - title: Found grey cat
    type: cat
    breed: british shorthair
    color: gray
    status: found
    photo: ads/cat-1.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ads []seedAd
		if err := loadFile(args[0], &ads); err != nil {
			return err
		}
		for i, ad := range ads {
			if err := ad.validate(); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}

		ctx := cmd.Context()
		b, closeFn, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		for _, ad := range ads {
			id, err := b.ads.Create(ctx, ad.model())
			if err != nil {
				return err
			}
			b.notify(ctx, id, indexer.ActionCreated)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, ad.Title)
		}
		return nil
	},
}

var placeholderCmd = &cobra.Command{
	Use:   "placeholder <id>",
	Short: "Hide an advertisement from search, or show it again with --off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		off, _ := cmd.Flags().GetBool("off")

		ctx := cmd.Context()
		b, closeFn, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := b.ads.MarkPlaceholder(ctx, id, !off); err != nil {
			return err
		}
		b.notify(ctx, id, indexer.ActionUpdated)
		return nil
	},
}

func init() {
	placeholderCmd.Flags().Bool("off", false, "make the advertisement searchable again")
}
