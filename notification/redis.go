package notification

import (
	"encoding/json"
	"fmt"

	"quotefeed/model"
	"quotefeed/utils"

	"github.com/go-redis/redis"
)

// RedisPublisher mirrors every committed price onto redis pub/sub so other
// processes can follow the feed without subscribing through this one.
// Publishing is fire-and-forget: redis being down never slows the feed.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	opsName string
}

type redisPriceMessage struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
	Time   int64   `json:"time"`
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "quotes"
	}
	return &RedisPublisher{
		client:  client,
		prefix:  prefix,
		opsName: prefix + ".ops",
	}
}

func (r *RedisPublisher) Notify(message string) {
	if err := r.client.Publish(r.opsName, message).Err(); err != nil {
		utils.Log.Debugf("[NOTIFY] redis publish: %s", err.Error())
	}
}

// OnPrice publishes the point on <prefix>.<symbol> as compact JSON.
func (r *RedisPublisher) OnPrice(symbol string, point model.PricePoint) {
	payload, err := json.Marshal(redisPriceMessage{
		Symbol: symbol,
		Value:  point.Value,
		Time:   point.Time.UnixMilli(),
	})
	if err != nil {
		return
	}
	channel := fmt.Sprintf("%s.%s", r.prefix, symbol)
	if err := r.client.Publish(channel, string(payload)).Err(); err != nil {
		utils.Log.Debugf("[NOTIFY] redis publish %s: %s", channel, err.Error())
	}
}

func (r *RedisPublisher) OnError(err error) {
	r.Notify(fmt.Sprintf("feed error: %s", err.Error()))
}
