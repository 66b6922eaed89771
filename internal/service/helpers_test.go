package service

import (
	"context"
	"sync"
	"time"

	"campus_feed/internal/repository/docstore"
)

var testEpoch = time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

// tickingStore 每次取时间前进一秒，保证 createdAt 严格递增
func tickingStore() *docstore.MemoryStore {
	var mu sync.Mutex
	now := testEpoch
	return docstore.NewMemoryStore().WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})
}

type recordedInteractions struct {
	mu   sync.Mutex
	list []Interaction
}

func (r *recordedInteractions) Record(_ context.Context, in Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, in)
}

func (r *recordedInteractions) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.list))
	for _, in := range r.list {
		out = append(out, in.Type)
	}
	return out
}
