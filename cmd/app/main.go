package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"petfinder/cmd/fx/ads_fx"
	"petfinder/cmd/fx/config_fx"
	"petfinder/cmd/fx/controllers_fx"
	"petfinder/cmd/fx/db_fx"
	"petfinder/cmd/fx/detector_fx"
	"petfinder/cmd/fx/embcache_fx"
	"petfinder/cmd/fx/encoder_fx"
	"petfinder/cmd/fx/events_fx"
	"petfinder/cmd/fx/index_fx"
	"petfinder/cmd/fx/matcher_fx"
	"petfinder/cmd/fx/photos_fx"
	"petfinder/internal/api/controllers"
	"petfinder/internal/config"
	"petfinder/internal/services"
	"petfinder/pkg/middleware"
	"petfinder/pkg/utils"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config_fx.Module,
		db_fx.Module,
		ads_fx.Module,
		encoder_fx.Module,
		detector_fx.Module,
		photos_fx.Module,
		embcache_fx.Module,
		index_fx.Module,
		events_fx.Module,
		matcher_fx.Module,
		controllers_fx.Module,

		fx.Invoke(SeedAdmin),
		fx.Invoke(StartServer),
		fx.Provide(ProvideRouter),
	)

	app.Run()
}

func SeedAdmin(lc fx.Lifecycle, cfg *config.Config, accounts services.AccountServiceInterface) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return accounts.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		},
	})
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			ctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}

type routerParams struct {
	fx.In

	Config  *config.Config
	Search  *controllers.SearchController
	Index   *controllers.IndexController
	Health  *controllers.HealthController
	Account *controllers.AccountController
}

func ProvideRouter(p routerParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.MaxMultipartMemory = 12 << 20

	var searchLimiter *rate.Limiter
	if p.Config.Search.RPS > 0 {
		searchLimiter = rate.NewLimiter(rate.Limit(p.Config.Search.RPS), p.Config.Search.Burst)
	}

	RegisterRoutes(r, p, searchLimiter)

	return r
}

func RegisterRoutes(r *gin.Engine, p routerParams, searchLimiter *rate.Limiter) {
	r.GET("/health", p.Health.Health)

	r.POST("/search", middleware.RateLimitMiddleware(searchLimiter), p.Search.Search)

	authGroup := r.Group("/auth")
	authGroup.POST("/login", p.Account.Login)

	indexGroup := r.Group("/index")
	indexGroup.GET("/status", p.Index.Status)
	indexGroup.POST("/rebuild",
		middleware.JWTAuthMiddleware([]byte(p.Config.Auth.JWTSecret)),
		middleware.RoleMiddleware(utils.RoleAdmin),
		p.Index.Rebuild)
}
