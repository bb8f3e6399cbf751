package controllers

import (
	"github.com/kataras/iris/v12"
	"github.com/samber/lo"

	"quotefeed/api/typing"
	"quotefeed/api/validates"
	"quotefeed/feed"
	"quotefeed/model"
)

type SubscriptionController struct {
	BaseController
}

// Create opens a live feed over the requested tickers and returns the
// subscription handle. Delivery itself happens over the configured notifiers;
// the HTTP surface only manages lifecycles.
func (c *SubscriptionController) Create(ctx iris.Context) error {
	data := map[string]interface{}{
		"code":    "0",
		"message": "success",
	}
	request, interval, err := validates.SubscriptionRequestValidate(ctx)
	if err != nil {
		data["code"] = "10401"
		data["message"] = err.Error()
		return ctx.JSON(data)
	}
	subscription, err := c.LiveFeed.Subscribe(request.Symbols, interval)
	if err != nil {
		data["code"] = "100"
		data["message"] = err.Error()
		return ctx.JSON(data)
	}
	data["data"] = subscriptionResult(subscription)
	return ctx.JSON(data)
}

// Cancel tears the subscription down. Unknown IDs are a no-op.
func (c *SubscriptionController) Cancel(ctx iris.Context) error {
	data := map[string]interface{}{
		"code":    "0",
		"message": "success",
	}
	var id string
	if id = ctx.URLParamTrim("id"); len(id) == 0 {
		data["code"] = "10401"
		data["message"] = "please set subscription id"
		return ctx.JSON(data)
	}
	c.LiveFeed.Unsubscribe(id)
	return ctx.JSON(data)
}

// Update swaps an existing subscription for one with the requested symbols
// and interval.
func (c *SubscriptionController) Update(ctx iris.Context) error {
	data := map[string]interface{}{
		"code":    "0",
		"message": "success",
	}
	request, interval, err := validates.SubscriptionUpdateValidate(ctx)
	if err != nil {
		data["code"] = "10401"
		data["message"] = err.Error()
		return ctx.JSON(data)
	}
	subscription, err := c.LiveFeed.Update(request.ID, request.Symbols, interval)
	if err != nil {
		data["code"] = "100"
		data["message"] = err.Error()
		return ctx.JSON(data)
	}
	data["data"] = subscriptionResult(subscription)
	return ctx.JSON(data)
}

// Feeds lists the poll loops currently running, one per distinct symbol-set
// and interval combination.
func (c *SubscriptionController) Feeds(ctx iris.Context) error {
	return ctx.JSON(map[string]interface{}{
		"code":    "0",
		"message": "success",
		"data":    c.LiveFeed.ActiveFeeds(),
	})
}

func subscriptionResult(subscription *feed.Subscription) typing.SubscriptionResult {
	return typing.SubscriptionResult{
		ID: subscription.ID,
		Symbols: lo.Map(subscription.Symbols, func(symbol model.Symbol, _ int) string {
			return symbol.Canonical
		}),
		Interval: subscription.Interval.String(),
	}
}
