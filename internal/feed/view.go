package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"
)

var (
	ErrBusy   = errors.New("action already in progress")
	ErrClosed = errors.New("view closed")
)

// Viewer 当前浏览者
type Viewer struct {
	UID         string
	DisplayName string
	IsAdmin     bool
}

type viewConfig struct {
	sync   SyncStrategy
	limit  int
	author string
}

type ViewOption func(*viewConfig)

// WithSync 替换写后同步策略，默认 Refetch
func WithSync(s SyncStrategy) ViewOption {
	return func(c *viewConfig) {
		if s != nil {
			c.sync = s
		}
	}
}

// WithLimit 帖子快照条数
func WithLimit(n int) ViewOption {
	return func(c *viewConfig) { c.limit = n }
}

// WithAuthor 只展示某个作者的帖子（个人主页）
func WithAuthor(uid string) ViewOption {
	return func(c *viewConfig) { c.author = uid }
}

func buildConfig(opts []ViewOption) viewConfig {
	c := viewConfig{sync: Refetch{}}
	for _, fn := range opts {
		fn(&c)
	}
	return c
}

// core 视图共用的状态：加载代数、关闭标记、按控件的提交锁和最近一次错误。
// 视图自身的数据也由 mu 保护
type core struct {
	mu       sync.Mutex
	sync     SyncStrategy
	gen      uint64
	closed   bool
	loading  bool
	errMsg   string
	inflight map[string]struct{}
}

func (c *core) init(s SyncStrategy) {
	c.sync = s
	c.inflight = make(map[string]struct{})
}

func (c *core) startLoad() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	c.gen++
	c.loading = true
	return c.gen, nil
}

// finishLoad 只有最新一代且视图未关闭时才应用结果，过期响应直接丢弃；
// 加载途中视图被关闭时返回 ErrClosed，调用方可以换新视图重来
func (c *core) finishLoad(gen uint64, err error, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if gen != c.gen {
		return nil
	}
	c.loading = false
	if err != nil {
		c.errMsg = err.Error()
		return err
	}
	apply()
	c.errMsg = ""
	return nil
}

func (c *core) begin(key string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if _, ok := c.inflight[key]; ok {
		return nil, ErrBusy
	}
	c.inflight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}, nil
}

func (c *core) fail(err error) error {
	c.mu.Lock()
	c.errMsg = err.Error()
	c.mu.Unlock()
	return err
}

// mutate 提交期间锁住同一控件；写失败保留原有派生状态，成功后交给同步策略
func (c *core) mutate(ctx context.Context, key string, m Mutation, do func() error, reload Reloader) error {
	done, err := c.begin(key)
	if err != nil {
		return err
	}
	defer done()

	if err = do(); err != nil {
		return c.fail(err)
	}
	if err = c.sync.AfterMutation(ctx, m, reload); err != nil {
		glog.Warningf("reload after %s %s: %v", m.Kind, m.EntityID, err)
	}
	return nil
}

// Close 之后到达的加载结果全部丢弃
func (c *core) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
}
