package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dreamui/backend/pkg/logger"
	"dreamui/backend/shared/redis"

	"github.com/google/uuid"
)

const redisLockPrefix = "dreamui:archive-lock:"

// RedisLocker serialises writers across processes sharing one archive directory.
// Each lock is a key set with NX and a TTL; release only deletes a key that still
// holds this holder's token, so an expired lock taken over by someone else is left alone.
type RedisLocker struct {
	client *redis.RedisClient
	ttl    time.Duration
	retry  time.Duration
	log    *logger.Logger
}

// NewRedisLocker creates a RedisLocker. ttl bounds how long a crashed holder blocks others.
func NewRedisLocker(client *redis.RedisClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond, log: log.WithComponent("archive.lock")}
}

// Lock implements Locker
func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := redisLockPrefix + id
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire archive lock %s: %w", id, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			released, err := l.client.Release(releaseCtx, key, token)
			if err != nil {
				l.log.LogError(err, "Failed to release archive lock", "archive_id", id)
				return
			}
			if !released {
				l.log.Warn("Archive lock expired before release", "archive_id", id, "ttl", l.ttl.String())
			}
		})
	}, nil
}
