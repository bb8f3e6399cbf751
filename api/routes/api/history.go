package api

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/core/router"

	"quotefeed/api/controllers"
	"quotefeed/service"
)

func HistoryRoutes(app router.Party, liveFeed *service.ServiceLiveFeed) {
	c := controllers.HistoryController{BaseController: controllers.BaseController{LiveFeed: liveFeed}}

	app.Get("/rolling", func(ctx iris.Context) {
		_ = c.Rolling(ctx)
	})
	app.Get("/series", func(ctx iris.Context) {
		_ = c.Series(ctx)
	})
}
