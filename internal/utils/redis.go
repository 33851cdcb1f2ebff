package utils

import "github.com/redis/go-redis/v9"

// OpenRedis returns nil when addr is empty so callers can treat the cache as
// optional.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}
