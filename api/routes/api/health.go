package api

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/core/router"

	"quotefeed/api/controllers"
)

func HealthRoutes(app router.Party) {
	c := controllers.HealthController{}

	app.Get("/live", func(ctx iris.Context) {
		_ = c.Live(ctx)
	})
}
