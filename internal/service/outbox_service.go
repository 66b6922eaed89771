package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"campus_feed/internal/model"
	"campus_feed/internal/pkg"
)

// 互动事件类型
const (
	EventPostCreated  = "post"
	EventLike         = "like"
	EventUnlike       = "unlike"
	EventComment      = "comment"
	EventCreated      = "event"
	EventRSVP         = "rsvp"
	EventRSVPCanceled = "unrsvp"
)

// Interaction 一次成功的写操作
type Interaction struct {
	Type     string
	EntityID string
	UserID   string
	Data     map[string]any
}

// Recorder 写操作成功后记录互动事件
type Recorder interface {
	Record(ctx context.Context, in Interaction)
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Interaction) {}

// OutboxStore outbox 表读写
type OutboxStore interface {
	Insert(ctx context.Context, ob *model.InteractionOutbox) error
	List(ctx context.Context, batchSize int) ([]model.InteractionOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

// OutboxRecorder 把互动事件写入 outbox 表。
// 文档库与 MySQL 之间没有事务，写 outbox 失败只记日志，不影响已经成功的写操作
type OutboxRecorder struct {
	repo OutboxStore
	now  func() time.Time
}

func NewOutboxRecorder(repo OutboxStore) *OutboxRecorder {
	return &OutboxRecorder{repo: repo, now: time.Now}
}

func (r *OutboxRecorder) Record(ctx context.Context, in Interaction) {
	body := map[string]any{
		"event_time": r.now().UTC().Format(time.RFC3339Nano),
		"type":       in.Type,
		"entity_id":  in.EntityID,
		"user_id":    in.UserID,
	}
	for k, v := range in.Data {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		glog.Errorf("outbox marshal %s/%s: %v", in.Type, in.EntityID, err)
		return
	}
	ob := &model.InteractionOutbox{
		EventType: in.Type,
		EntityID:  in.EntityID,
		UserID:    in.UserID,
		Payload:   string(payload),
	}
	if err = r.repo.Insert(context.WithoutCancel(ctx), ob); err != nil {
		glog.Warningf("outbox insert %s/%s: %v", in.Type, in.EntityID, err)
	}
}

type Sender func(ctx context.Context, ob *model.InteractionOutbox) error

// OutboxRelayer 从 outbox 表读取事件投递到消息队列
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, interval time.Duration) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		interval:  interval,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		glog.Errorf("outbox query err: %v", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			glog.Warningf("outbox send id=%d type=%s retry=%d: %v", ob.ID, ob.EventType, ob.Retry, err)
			pkg.OutboxDelivered.WithLabelValues("error").Inc()
			if uerr := r.repo.RetryUpdate(ctx, ob.ID); uerr != nil {
				glog.Errorf("outbox retry update id=%d: %v", ob.ID, uerr)
			}
			continue
		}
		pkg.OutboxDelivered.WithLabelValues("ok").Inc()
		if uerr := r.repo.SuccessUpdate(ctx, ob.ID); uerr != nil {
			glog.Errorf("outbox success update id=%d: %v", ob.ID, uerr)
			continue
		}
		sent++
	}
	return sent
}

// KafkaSender 以实体 ID 为 key 投递，同一实体的事件保持顺序
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.InteractionOutbox) error {
		return p.Send(ctx, ob.EntityID, []byte(ob.Payload), map[string]string{"event_type": ob.EventType})
	}
}

// LogSender 未配置 Kafka 时只打印
func LogSender(_ context.Context, ob *model.InteractionOutbox) error {
	glog.Infof("OUTBOX SEND type=%s entity=%s user=%s payload=%s", ob.EventType, ob.EntityID, ob.UserID, ob.Payload)
	return nil
}
