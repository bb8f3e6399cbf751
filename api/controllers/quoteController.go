package controllers

import (
	"github.com/kataras/iris/v12"

	"quotefeed/provider"
)

type QuoteController struct {
	BaseController
}

// Latest returns the most recent observed price for one ticker.
func (c *QuoteController) Latest(ctx iris.Context) error {
	data := map[string]interface{}{
		"code":    "0",
		"message": "success",
	}
	var symbol string
	if symbol = ctx.URLParamTrim("symbol"); len(symbol) == 0 {
		data["code"] = "10401"
		data["message"] = "please set symbol name"
		return ctx.JSON(data)
	}
	point, ok := c.LiveFeed.CurrentValue(symbol)
	if !ok {
		data["code"] = "10404"
		data["message"] = "no price observed for symbol"
		return ctx.JSON(data)
	}
	data["data"] = map[string]interface{}{
		"symbol": provider.ResolveSymbol(symbol).Canonical,
		"value":  point.Value,
		"time":   point.Time.UnixMilli(),
	}
	return ctx.JSON(data)
}

// Resolve shows how a raw ticker maps onto its canonical provider ID.
func (c *QuoteController) Resolve(ctx iris.Context) error {
	data := map[string]interface{}{
		"code":    "0",
		"message": "success",
	}
	var symbol string
	if symbol = ctx.URLParamTrim("symbol"); len(symbol) == 0 {
		data["code"] = "10401"
		data["message"] = "please set symbol name"
		return ctx.JSON(data)
	}
	resolved := provider.ResolveSymbol(symbol)
	data["data"] = map[string]interface{}{
		"raw":       resolved.Raw,
		"canonical": resolved.Canonical,
	}
	return ctx.JSON(data)
}
