package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LockTTL       = 2 * time.Second
	LockKeyPrefix = "lock:toggle"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// DistLock 按文档加的分布式锁
type DistLock struct {
	RDB *redis.Client
	TTL time.Duration
}

func (l *DistLock) key(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", LockKeyPrefix, collection, id)
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, collection, id, token string) (bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = LockTTL
	}
	return l.RDB.SetNX(ctx, l.key(collection, id), token, ttl).Result()
}

// Release 用lua保证只释放自己持有的锁
func (l *DistLock) Release(ctx context.Context, collection, id, token string) error {
	return releaseScript.Run(ctx, l.RDB, []string{l.key(collection, id)}, token).Err()
}
