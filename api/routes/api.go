package routes

import (
	"github.com/kataras/iris/v12"

	"quotefeed/api/routes/api"
	"quotefeed/service"
)

// ApiRoutes mounts every HTTP route onto the application.
func ApiRoutes(app *iris.Application, liveFeed *service.ServiceLiveFeed) {
	api.BaseRoutes(app)
	api.PprofRoutes(app)
	healthRoutes := app.Party("/health")
	{
		api.HealthRoutes(healthRoutes)
	}
	quoteRoutes := app.Party("/v1/quote")
	{
		api.QuoteRoutes(quoteRoutes, liveFeed)
	}
	historyRoutes := app.Party("/v1/history")
	{
		api.HistoryRoutes(historyRoutes, liveFeed)
	}
	symbolsRoutes := app.Party("/v1/symbols")
	{
		api.SymbolsRoutes(symbolsRoutes)
	}
	subscriptionRoutes := app.Party("/v1/subscription")
	{
		api.SubscriptionRoutes(subscriptionRoutes, liveFeed)
	}
}
