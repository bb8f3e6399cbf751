package controllers

import (
	"github.com/kataras/iris/v12"
	"github.com/samber/lo"

	"quotefeed/model"
)

type HistoryController struct {
	BaseController
}

// Rolling returns the in-memory window of recent live prices for one ticker,
// oldest first.
func (c *HistoryController) Rolling(ctx iris.Context) error {
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
	data["data"] = pointsPayload(c.LiveFeed.History(symbol))
	return ctx.JSON(data)
}

// Series returns a provider-backed historical series for one ticker over a
// named timeframe (1d, 7d, 30d, 90d, 365d).
func (c *HistoryController) Series(ctx iris.Context) error {
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
	timeframe, err := model.ParseTimeframe(ctx.URLParamDefault("timeframe", string(model.TimeframeDay)))
	if err != nil {
		data["code"] = "10401"
		data["message"] = err.Error()
		return ctx.JSON(data)
	}
	points, err := c.LiveFeed.HistorySeries(ctx.Request().Context(), symbol, timeframe)
	if err != nil {
		data["code"] = "100"
		data["message"] = err.Error()
		return ctx.JSON(data)
	}
	data["data"] = pointsPayload(points)
	return ctx.JSON(data)
}

func pointsPayload(points []model.PricePoint) []map[string]interface{} {
	return lo.Map(points, func(point model.PricePoint, _ int) map[string]interface{} {
		return map[string]interface{}{
			"time":  point.Time.UnixMilli(),
			"value": point.Value,
		}
	})
}
