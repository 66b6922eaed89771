package feed

import "context"

// Mutation 一次成功的写操作
type Mutation struct {
	Kind     string
	EntityID string
}

type Reloader func(ctx context.Context) error

// SyncStrategy 写操作成功后如何让视图追上文档库
type SyncStrategy interface {
	AfterMutation(ctx context.Context, m Mutation, reload Reloader) error
}

// Refetch 默认策略：不在本地打补丁，重新拉取完整快照
type Refetch struct{}

func (Refetch) AfterMutation(ctx context.Context, _ Mutation, reload Reloader) error {
	return reload(ctx)
}
