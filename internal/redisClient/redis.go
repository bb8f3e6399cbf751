package redisClient

import (
	"github.com/go-redis/redis"
	"github.com/spf13/viper"
)

// New builds a redis client from the redis.* config block. The client dials
// lazily, so constructing it is safe even when redis never gets used.
func New() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})
}
