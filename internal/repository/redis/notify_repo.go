package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	NotifyPrefix     = "notify:rsvp"
	NotifyPendingTTL = 5 * time.Minute
	NotifySentTTL    = 24 * time.Hour

	// 两阶段键
	PendingSuffix = "pending"
	SentSuffix    = "sent"
)

var (
	ErrNotifyDuplicate = errors.New("notification already sent")
	ErrNotifyMark      = errors.New("notification mark failed")
)

// 取值+写入目标+设置 TTL+删除源
var markSentScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// NotifyRepository 报名确认邮件去重：同一用户同一活动在窗口期内只发一次
type NotifyRepository struct {
	RDB *redis.Client
}

func (r *NotifyRepository) key(suffix, eventID, uid string) string {
	return fmt.Sprintf("%s:%s:%s:%s", NotifyPrefix, suffix, eventID, uid)
}

// Reserve 占用 pending 键；已发送或正在发送时返回 ErrNotifyDuplicate
func (r *NotifyRepository) Reserve(ctx context.Context, eventID, uid string) error {
	n, err := r.RDB.Exists(ctx, r.key(SentSuffix, eventID, uid)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrNotifyDuplicate
	}
	ok, err := r.RDB.SetNX(ctx, r.key(PendingSuffix, eventID, uid), time.Now().Unix(), NotifyPendingTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotifyDuplicate
	}
	return nil
}

// MarkSent 邮件发出后将 pending 转为 sent
func (r *NotifyRepository) MarkSent(ctx context.Context, eventID, uid string) error {
	src := r.key(PendingSuffix, eventID, uid)
	dst := r.key(SentSuffix, eventID, uid)
	ok, err := markSentScript.Run(ctx, r.RDB, []string{src, dst}, NotifySentTTL.Milliseconds()).Int()
	if err != nil || ok != 1 {
		return ErrNotifyMark
	}
	return nil
}

// Release 发送失败时删除 pending 键（幂等）
func (r *NotifyRepository) Release(ctx context.Context, eventID, uid string) error {
	return r.RDB.Del(ctx, r.key(PendingSuffix, eventID, uid)).Err()
}
