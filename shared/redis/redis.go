package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisClient struct {
	client *redis.Client
}

// NewRedisClient accepts either a redis:// URL or a bare host:port address
func NewRedisClient(addr string) (*RedisClient, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     addr,
			Password: "", // no password by default
			DB:       0,  // use default DB
		}
	}
	return &RedisClient{client: redis.NewClient(opts)}, nil
}

// Ping checks connectivity
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SetNX stores value under key only if the key does not exist yet
func (r *RedisClient) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, expiration).Result()
}

// Release removes key if it still holds token and reports whether it did
func (r *RedisClient) Release(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
