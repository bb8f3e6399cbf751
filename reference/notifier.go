package reference

import (
	"quotefeed/model"
)

type Notifier interface {
	Notify(string)
	OnPrice(symbol string, point model.PricePoint)
	OnError(err error)
}
