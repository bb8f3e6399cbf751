package controllers

import (
	"github.com/kataras/iris/v12"
)

type HealthController struct {
	BaseController
}

// Live is the liveness probe.
func (c *HealthController) Live(ctx iris.Context) error {
	return ctx.JSON(map[string]string{
		"code":  "200",
		"error": "welcome to quotefeed",
	})
}
