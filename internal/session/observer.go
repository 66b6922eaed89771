// Package session 广播登录态变化。Observer 由调用方显式创建并持有，
// 订阅返回的 Subscription 需要调用方自行 Close。
package session

import (
	"sync"
)

// Session 已登录用户的身份信息
type Session struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Change 一次登录态变化；Session 为 nil 表示已退出
type Change struct {
	UID     string
	Session *Session
}

// SignedOut 是否为退出事件
func (c Change) SignedOut() bool {
	return c.Session == nil
}

type Observer struct {
	mu      sync.RWMutex
	subs    map[uint64]func(Change)
	next    uint64
	current map[string]Session
	closed  bool
}

func NewObserver() *Observer {
	return &Observer{
		subs:    make(map[uint64]func(Change)),
		current: make(map[string]Session),
	}
}

type Subscription struct {
	once sync.Once
	o    *Observer
	id   uint64
}

// Subscribe 注册回调；Observer 已关闭时返回的订阅不会收到任何事件
func (o *Observer) Subscribe(fn func(Change)) *Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.next++
	sub := &Subscription{o: o, id: o.next}
	if !o.closed {
		o.subs[sub.id] = fn
	}
	return sub
}

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.o.mu.Lock()
		delete(s.o.subs, s.id)
		s.o.mu.Unlock()
	})
}

// Publish 同步通知所有订阅者，回调在锁外执行
func (o *Observer) Publish(c Change) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if c.Session == nil {
		delete(o.current, c.UID)
	} else {
		o.current[c.UID] = *c.Session
	}
	fns := make([]func(Change), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Current 返回用户当前会话
func (o *Observer) Current(uid string) (Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.current[uid]
	return s, ok
}

// Close 丢弃全部订阅，之后的 Publish 不再生效
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.subs = make(map[uint64]func(Change))
	o.current = make(map[string]Session)
}
