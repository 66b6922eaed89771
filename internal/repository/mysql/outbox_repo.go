package mysql

import (
	"context"

	"campus_feed/internal/model"

	"gorm.io/gorm"
)

// MaxOutboxRetry 超过次数的失败消息不再投递，留给人工排查
const MaxOutboxRetry = 5

type OutboxRepository struct {
	DB *gorm.DB
}

// Insert 写入一条待投递的互动事件
func (r *OutboxRepository) Insert(ctx context.Context, ob *model.InteractionOutbox) error {
	ob.Status = model.OutboxPending
	return r.DB.WithContext(ctx).Create(ob).Error
}

// List 查询待投递和可重试的记录
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.InteractionOutbox, error) {
	var list []model.InteractionOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, MaxOutboxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.InteractionOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.InteractionOutbox{}).Where("id=?", id).
		Update("status", model.OutboxSent).Error
}
