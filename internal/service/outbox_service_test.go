package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"campus_feed/internal/model"
)

type memOutbox struct {
	mu   sync.Mutex
	rows []model.InteractionOutbox
}

func (m *memOutbox) Insert(_ context.Context, ob *model.InteractionOutbox) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ob.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, *ob)
	return nil
}

func (m *memOutbox) List(_ context.Context, batchSize int) ([]model.InteractionOutbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.InteractionOutbox, 0)
	for _, r := range m.rows {
		if r.Status != model.OutboxSent && r.Retry < 5 && len(out) < batchSize {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memOutbox) RetryUpdate(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id-1].Status = model.OutboxFailed
	m.rows[id-1].Retry++
	return nil
}

func (m *memOutbox) SuccessUpdate(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id-1].Status = model.OutboxSent
	return nil
}

func TestOutboxRecorderPayload(t *testing.T) {
	repo := &memOutbox{}
	rec := NewOutboxRecorder(repo)

	rec.Record(context.Background(), Interaction{
		Type: EventComment, EntityID: "p1", UserID: "u1",
		Data: map[string]any{"text": "Hello"},
	})

	assert.Equal(t, 1, len(repo.rows))
	row := repo.rows[0]
	assert.Equal(t, EventComment, row.EventType)
	assert.Equal(t, "p1", row.EntityID)
	assert.Equal(t, model.OutboxPending, row.Status)

	var body map[string]any
	assert.Equal(t, nil, json.Unmarshal([]byte(row.Payload), &body))
	assert.Equal(t, "comment", body["type"])
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "Hello", body["text"])
	_, ok := body["event_time"]
	assert.Equal(t, true, ok)
}

func TestOutboxRelayerDeliversAndRetries(t *testing.T) {
	ctx := context.Background()
	repo := &memOutbox{}
	rec := NewOutboxRecorder(repo)
	rec.Record(ctx, Interaction{Type: EventLike, EntityID: "p1", UserID: "u1"})
	rec.Record(ctx, Interaction{Type: EventLike, EntityID: "p2", UserID: "u1"})

	var delivered []string
	sender := func(_ context.Context, ob *model.InteractionOutbox) error {
		if ob.EntityID == "p2" {
			return errors.New("broker unavailable")
		}
		delivered = append(delivered, ob.EntityID)
		return nil
	}
	r := NewOutboxRelayer(repo, sender, 0)

	assert.Equal(t, 1, r.DrainOnce(ctx))
	assert.Equal(t, []string{"p1"}, delivered)
	assert.Equal(t, model.OutboxSent, repo.rows[0].Status)
	assert.Equal(t, model.OutboxFailed, repo.rows[1].Status)
	assert.Equal(t, 1, repo.rows[1].Retry)

	// 已发送的不再投递，失败的在重试上限内继续尝试
	for i := 0; i < 10; i++ {
		r.DrainOnce(ctx)
	}
	assert.Equal(t, []string{"p1"}, delivered)
	assert.Equal(t, 5, repo.rows[1].Retry)
}

func TestServicesFeedOutbox(t *testing.T) {
	ctx := context.Background()
	repo := &memOutbox{}
	svc := NewPostService(tickingStore(), WithRecorder(NewOutboxRecorder(repo)))
	id, _ := svc.Create(ctx, "x", "a", "A", []string{"Finals"})
	_, _ = svc.ToggleLike(ctx, id, "u1")

	assert.Equal(t, 2, len(repo.rows))
	assert.Equal(t, EventPostCreated, repo.rows[0].EventType)
	assert.Equal(t, EventLike, repo.rows[1].EventType)
	assert.Equal(t, id, repo.rows[1].EntityID)
}
