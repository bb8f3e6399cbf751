package validates

import (
	"time"

	"github.com/kataras/iris/v12"
	str2duration "github.com/xhit/go-str2duration/v2"

	"quotefeed/api/typing"
	"quotefeed/utils"
	"quotefeed/utils/validate"
)

func subscriptionFieldTrans() map[string]string {
	return map[string]string{
		"Symbols.required":  "symbols must be required",
		"Symbols.min":       "symbols must not be empty",
		"Interval.required": "interval must be required",
		"ID.required":       "id must be required",
	}
}

// SubscriptionRequestValidate reads and validates a feed subscription body,
// returning the parsed refresh interval alongside it.
func SubscriptionRequestValidate(ctx iris.Context) (typing.SubscriptionRequest, time.Duration, error) {
	request := typing.SubscriptionRequest{}
	if err := ctx.ReadJSON(&request); err != nil {
		utils.Log.Errorf("read post param json error")
		return request, 0, err
	}
	if err := validate.Run(request, subscriptionFieldTrans()); err != nil {
		return request, 0, err
	}
	interval, err := str2duration.ParseDuration(request.Interval)
	if err != nil {
		return request, 0, err
	}
	return request, interval, nil
}

// SubscriptionUpdateValidate reads and validates a subscription replacement
// body.
func SubscriptionUpdateValidate(ctx iris.Context) (typing.SubscriptionUpdateRequest, time.Duration, error) {
	request := typing.SubscriptionUpdateRequest{}
	if err := ctx.ReadJSON(&request); err != nil {
		utils.Log.Errorf("read post param json error")
		return request, 0, err
	}
	if err := validate.Run(request, subscriptionFieldTrans()); err != nil {
		return request, 0, err
	}
	interval, err := str2duration.ParseDuration(request.Interval)
	if err != nil {
		return request, 0, err
	}
	return request, interval, nil
}
