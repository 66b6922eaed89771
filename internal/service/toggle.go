package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"campus_feed/internal/pkg"
	"campus_feed/internal/repository/docstore"
	"campus_feed/internal/repository/redis"
)

const (
	ToggleModeCompat = "compat"
	ToggleModeLocked = "locked"
)

var ErrLockBusy = errors.New("lock busy")

// Locker 串行化同一文档上的读-改-写
type Locker interface {
	Lock(ctx context.Context, collection, id string) (unlock func(), err error)
}

// NopLocker 不加锁：读和写之间没有事务，同一文档的并发切换可能使计数与集合大小不一致，
// 由 CounterReconciler 兜底修正
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string, string) (func(), error) {
	return func() {}, nil
}

// RedisLocker 基于 SETNX 的分布式锁，拿不到锁时在 wait 内轮询
type RedisLocker struct {
	lock  *redis.DistLock
	wait  time.Duration
	retry time.Duration
}

func NewRedisLocker(lock *redis.DistLock) *RedisLocker {
	return &RedisLocker{lock: lock, wait: time.Second, retry: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, collection, id string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.lock.Acquire(ctx, collection, id, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// 请求可能已取消，释放锁使用独立的 context
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := l.lock.Release(rctx, collection, id, token); err != nil {
					glog.Warningf("release lock %s/%s: %v", collection, id, err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			glog.Warningf("lock %s/%s busy after %s", collection, id, l.wait)
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// relation 文档中的一个成员关系及其冗余计数
type relation[D any] struct {
	name        string // 指标标签
	collection  string
	field       string
	countField  string
	notFoundMsg string
	members     func(*D) []string
}

// toggleMembership 读取文档，判断成员关系，然后在一次文档更新中同时写入关系和计数。
// 计数取读到的关系大小加减一，而不是原子自增
func toggleMembership[D any](
	ctx context.Context,
	store docstore.Store,
	locker Locker,
	rel relation[D],
	id, userID string,
	member func(now time.Time) any,
	pull any,
) (bool, *D, error) {
	unlock, err := lockDoc(ctx, locker, rel.collection, id)
	if err != nil {
		return false, nil, err
	}
	defer unlock()

	doc, err := store.Get(ctx, rel.collection, id)
	if err != nil {
		return false, nil, storeErr(err, rel.notFoundMsg)
	}
	var d D
	if err = doc.Decode(&d); err != nil {
		return false, nil, remote(err)
	}

	ids := rel.members(&d)
	size := len(ids)
	var u docstore.Update
	added := !slices.Contains(ids, userID)
	if added {
		u = docstore.Update{
			AddToSet: map[string]any{rel.field: member(store.Now())},
			Set:      map[string]any{rel.countField: size + 1},
		}
	} else {
		u = docstore.Update{
			Pull: map[string]any{rel.field: pull},
			Set:  map[string]any{rel.countField: size - 1},
		}
	}
	if err = store.Update(ctx, rel.collection, id, u); err != nil {
		return false, nil, storeErr(err, rel.notFoundMsg)
	}

	direction := "remove"
	if added {
		direction = "add"
	}
	pkg.ToggleFlips.WithLabelValues(rel.name, direction).Inc()
	return added, &d, nil
}

// lockDoc 拿不到锁时返回 ErrConflict，其余失败按远端错误处理
func lockDoc(ctx context.Context, locker Locker, collection, id string) (func(), error) {
	unlock, err := locker.Lock(ctx, collection, id)
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return nil, &Error{Kind: ErrConflict, Msg: "Too many concurrent updates, please retry", Err: err}
		}
		return nil, remote(err)
	}
	return unlock, nil
}
