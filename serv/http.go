package serv

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/recover"
	"github.com/spf13/viper"

	"quotefeed/api/middlewares"
	"quotefeed/api/routes"
	"quotefeed/service"
	"quotefeed/utils"
)

// StartHttpServer runs the HTTP surface over the live feed service. Blocks
// until the listener fails or the process exits.
func StartHttpServer(liveFeed *service.ServiceLiveFeed) {
	app := iris.New()
	app.Logger().SetLevel(viper.GetString("log.level"))
	// CORS first, recover wraps the handlers below it
	app.Use(middlewares.CorsNew())
	app.Use(recover.New())
	routes.ApiRoutes(app, liveFeed)
	cfg := iris.DefaultConfiguration()
	err := viper.Unmarshal(&cfg)
	if err != nil {
		utils.Log.Errorf("unmarshal config failed: %s", err.Error())
	}
	err = app.Run(iris.Addr(viper.GetString("listen.http")), iris.WithConfiguration(cfg))
	if err != nil {
		utils.Log.Errorf(err.Error())
	}
}
