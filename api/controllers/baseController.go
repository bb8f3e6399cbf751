package controllers

import (
	"quotefeed/service"
)

type BaseController struct {
	LiveFeed *service.ServiceLiveFeed
}
