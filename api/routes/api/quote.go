package api

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/core/router"

	"quotefeed/api/controllers"
	"quotefeed/service"
)

func QuoteRoutes(app router.Party, liveFeed *service.ServiceLiveFeed) {
	c := controllers.QuoteController{BaseController: controllers.BaseController{LiveFeed: liveFeed}}

	app.Get("/latest", func(ctx iris.Context) {
		_ = c.Latest(ctx)
	})
	app.Get("/resolve", func(ctx iris.Context) {
		_ = c.Resolve(ctx)
	})
}
