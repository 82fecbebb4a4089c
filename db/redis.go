package db

import (
	"os"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client for the counter/ranked-set cache. Returns
// nil when REDIS_ADDR is unset; callers treat a nil client as "cache off".
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}
