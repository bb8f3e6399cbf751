package api

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/core/router"

	"quotefeed/api/controllers"
	"quotefeed/service"
)

func SubscriptionRoutes(app router.Party, liveFeed *service.ServiceLiveFeed) {
	c := controllers.SubscriptionController{BaseController: controllers.BaseController{LiveFeed: liveFeed}}

	app.Post("/create", func(ctx iris.Context) {
		_ = c.Create(ctx)
	})
	app.Post("/update", func(ctx iris.Context) {
		_ = c.Update(ctx)
	})
	app.Get("/cancel", func(ctx iris.Context) {
		_ = c.Cancel(ctx)
	})
	app.Get("/feeds", func(ctx iris.Context) {
		_ = c.Feeds(ctx)
	})
}
