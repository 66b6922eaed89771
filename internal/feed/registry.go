package feed

import (
	"sync"
	"time"

	"campus_feed/internal/session"
)

type closer interface {
	Close()
}

type entry[V closer] struct {
	owner    string
	view     V
	lastUsed time.Time
}

// Registry 按用户缓存长生命周期的视图，使同一用户的重复提交能命中提交锁。
// 闲置超过 ttl 或用户登录态变化时关闭并移除
type Registry[V closer] struct {
	mu       sync.Mutex
	ttl      time.Duration
	perOwner int
	now      func() time.Time
	entries  map[string]*entry[V]
}

func NewRegistry[V closer](ttl time.Duration) *Registry[V] {
	return &Registry[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry[V]),
	}
}

// WithOwnerLimit 每个用户最多缓存 n 个视图，超出时关闭最久未用的；n <= 0 不限制
func (r *Registry[V]) WithOwnerLimit(n int) *Registry[V] {
	r.perOwner = n
	return r
}

// Get 返回 key 对应的视图，不存在时用 build 创建
func (r *Registry[V]) Get(owner, key string, build func() V) V {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictLocked(now)
	if e, ok := r.entries[key]; ok {
		e.lastUsed = now
		return e.view
	}
	r.trimOwnerLocked(owner)
	v := build()
	r.entries[key] = &entry[V]{owner: owner, view: v, lastUsed: now}
	return v
}

// Lookup 只查不建
func (r *Registry[V]) Lookup(key string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || (r.ttl > 0 && r.now().Sub(e.lastUsed) > r.ttl) {
		var zero V
		return zero, false
	}
	e.lastUsed = r.now()
	return e.view, true
}

// DropOwner 关闭某个用户的全部视图
func (r *Registry[V]) DropOwner(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.entries {
		if e.owner == owner {
			e.view.Close()
			delete(r.entries, k)
		}
	}
}

// Watch 登录态变化时丢弃该用户的视图
func (r *Registry[V]) Watch(o *session.Observer) *session.Subscription {
	return o.Subscribe(func(c session.Change) {
		r.DropOwner(c.UID)
	})
}

func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry[V]) evictLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for k, e := range r.entries {
		if now.Sub(e.lastUsed) > r.ttl {
			e.view.Close()
			delete(r.entries, k)
		}
	}
}

// trimOwnerLocked 给新视图腾位置
func (r *Registry[V]) trimOwnerLocked(owner string) {
	if r.perOwner <= 0 {
		return
	}
	for {
		n := 0
		oldest := ""
		var at time.Time
		for k, e := range r.entries {
			if e.owner != owner {
				continue
			}
			n++
			if oldest == "" || e.lastUsed.Before(at) {
				oldest, at = k, e.lastUsed
			}
		}
		if n < r.perOwner {
			return
		}
		r.entries[oldest].view.Close()
		delete(r.entries, oldest)
	}
}
