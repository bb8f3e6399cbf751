package api

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/core/router"

	"quotefeed/api/controllers"
)

func SymbolsRoutes(app router.Party) {
	c := controllers.SymbolsController{}

	app.Get("/list", func(ctx iris.Context) {
		_ = c.List(ctx)
	})
}
