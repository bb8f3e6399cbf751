package controllers

import (
	"sort"

	"github.com/kataras/iris/v12"

	"quotefeed/provider"
)

type SymbolsController struct {
	BaseController
}

// List returns every ticker the resolver maps explicitly, with its canonical
// provider ID.
func (c *SymbolsController) List(ctx iris.Context) error {
	known := provider.KnownSymbols()
	tickers := make([]string, 0, len(known))
	for ticker := range known {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	symbols := make([]map[string]string, 0, len(tickers))
	for _, ticker := range tickers {
		symbols = append(symbols, map[string]string{
			"ticker":    ticker,
			"canonical": known[ticker],
		})
	}
	return ctx.JSON(map[string]interface{}{
		"code":    "0",
		"message": "success",
		"data":    symbols,
	})
}
