package feed

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"campus_feed/internal/session"
)

type stubView struct {
	closed bool
}

func (s *stubView) Close() { s.closed = true }

func sessionFor(uid, name string) session.Session {
	return session.Session{UID: uid, DisplayName: name}
}

func TestRegistryReusesViewPerKey(t *testing.T) {
	r := NewRegistry[*stubView](time.Minute)
	builds := 0
	build := func() *stubView { builds++; return &stubView{} }

	a := r.Get("u1", "feed:u1", build)
	b := r.Get("u1", "feed:u1", build)
	assert.Equal(t, true, a == b)
	assert.Equal(t, 1, builds)

	_ = r.Get("u2", "feed:u2", build)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Lookup("feed:u1")
	assert.Equal(t, true, ok)
	assert.Equal(t, true, got == a)
	_, ok = r.Lookup("feed:nobody")
	assert.Equal(t, false, ok)
}

func TestRegistryEvictsIdle(t *testing.T) {
	r := NewRegistry[*stubView](time.Minute)
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	old := r.Get("u1", "k1", func() *stubView { return &stubView{} })
	now = now.Add(2 * time.Minute)

	_, ok := r.Lookup("k1")
	assert.Equal(t, false, ok)

	fresh := r.Get("u1", "k1", func() *stubView { return &stubView{} })
	assert.Equal(t, true, old.closed)
	assert.Equal(t, false, fresh.closed)
	assert.Equal(t, false, old == fresh)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryDropsOnSessionChange(t *testing.T) {
	obs := session.NewObserver()
	r := NewRegistry[*stubView](0)
	sub := r.Watch(obs)
	defer sub.Close()

	v1 := r.Get("u1", "feed:u1", func() *stubView { return &stubView{} })
	v2 := r.Get("u2", "feed:u2", func() *stubView { return &stubView{} })

	obs.Publish(session.Change{UID: "u1"})

	assert.Equal(t, true, v1.closed)
	assert.Equal(t, false, v2.closed)
	assert.Equal(t, 1, r.Len())

	s := sessionFor("u2", "Bob")
	obs.Publish(session.Change{UID: "u2", Session: &s})
	assert.Equal(t, true, v2.closed)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryOwnerLimitClosesLeastRecent(t *testing.T) {
	r := NewRegistry[*stubView](time.Hour).WithOwnerLimit(2)
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { now = now.Add(time.Second); return now }
	build := func() *stubView { return &stubView{} }

	a := r.Get("u1", "profile:u1:a", build)
	b := r.Get("u1", "profile:u1:b", build)
	other := r.Get("u2", "profile:u2:a", build)
	// a 最近用过，b 成为最久未用
	_ = r.Get("u1", "profile:u1:a", build)

	c := r.Get("u1", "profile:u1:c", build)
	assert.Equal(t, false, a.closed)
	assert.Equal(t, true, b.closed)
	assert.Equal(t, false, c.closed)
	assert.Equal(t, false, other.closed)
	assert.Equal(t, 3, r.Len())

	_, ok := r.Lookup("profile:u1:b")
	assert.Equal(t, false, ok)
	got, ok := r.Lookup("profile:u1:a")
	assert.Equal(t, true, ok)
	assert.Equal(t, true, got == a)
}
