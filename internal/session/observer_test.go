package session

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestPublishTracksCurrentSession(t *testing.T) {
	o := NewObserver()
	var got []Change
	sub := o.Subscribe(func(c Change) { got = append(got, c) })
	defer sub.Close()

	s := Session{UID: "u1", DisplayName: "Alice"}
	o.Publish(Change{UID: "u1", Session: &s})

	cur, ok := o.Current("u1")
	assert.Equal(t, true, ok)
	assert.Equal(t, "Alice", cur.DisplayName)

	o.Publish(Change{UID: "u1"})
	_, ok = o.Current("u1")
	assert.Equal(t, false, ok)

	assert.Equal(t, 2, len(got))
	assert.Equal(t, false, got[0].SignedOut())
	assert.Equal(t, true, got[1].SignedOut())
}

func TestSubscriptionClose(t *testing.T) {
	o := NewObserver()
	calls := 0
	sub := o.Subscribe(func(Change) { calls++ })

	o.Publish(Change{UID: "u1"})
	sub.Close()
	sub.Close()
	o.Publish(Change{UID: "u1"})

	assert.Equal(t, 1, calls)
}

func TestCallbackMayResubscribe(t *testing.T) {
	o := NewObserver()
	var inner *Subscription
	outer := o.Subscribe(func(Change) {
		// 回调在锁外执行，可以再次订阅
		if inner == nil {
			inner = o.Subscribe(func(Change) {})
		}
	})
	defer outer.Close()

	o.Publish(Change{UID: "u1"})
	assert.NotEqual(t, nil, inner)
	inner.Close()
}

func TestClosedObserverIgnoresPublish(t *testing.T) {
	o := NewObserver()
	calls := 0
	o.Subscribe(func(Change) { calls++ })
	o.Close()

	s := Session{UID: "u1"}
	o.Publish(Change{UID: "u1", Session: &s})
	late := o.Subscribe(func(Change) { calls++ })
	o.Publish(Change{UID: "u1", Session: &s})
	late.Close()

	assert.Equal(t, 0, calls)
	_, ok := o.Current("u1")
	assert.Equal(t, false, ok)
}
