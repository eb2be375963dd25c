package controllers_fx

import (
	"go.uber.org/fx"

	"petfinder/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewSearchController),
	fx.Provide(controllers.NewIndexController),
	fx.Provide(controllers.NewHealthController),
	fx.Provide(controllers.NewAccountController))
