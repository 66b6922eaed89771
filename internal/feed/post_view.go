package feed

import (
	"context"

	"campus_feed/internal/model"
	"campus_feed/internal/service"
)

type PostSource interface {
	List(ctx context.Context, maxCount int) ([]model.Post, error)
	Create(ctx context.Context, content, authorID, authorName string, tags []string) (string, error)
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, postID, userID, userName, text string) (model.Comment, error)
}

type PostSnapshot struct {
	Posts    []model.Post `json:"posts"`
	Tags     []string     `json:"tags"`
	Trending []TopicCount `json:"trending"`
	Search   string       `json:"search"`
	Tag      string       `json:"tag"`
	Loading  bool         `json:"loading"`
	Error    string       `json:"error,omitempty"`
}

// PostView 动态流：持有最近一次完整快照，过滤条件变化时重新派生
type PostView struct {
	core
	src    PostSource
	viewer Viewer
	limit  int
	author string
	posts  []model.Post
	search string
	tag    string
}

func NewPostView(src PostSource, viewer Viewer, opts ...ViewOption) *PostView {
	cfg := buildConfig(opts)
	v := &PostView{
		src:    src,
		viewer: viewer,
		limit:  cfg.limit,
		author: cfg.author,
		posts:  []model.Post{},
	}
	v.init(cfg.sync)
	return v
}

// Load 拉取完整快照，整体替换本地数据
func (v *PostView) Load(ctx context.Context) error {
	gen, err := v.startLoad()
	if err != nil {
		return err
	}
	posts, err := v.src.List(ctx, v.limit)
	return v.finishLoad(gen, err, func() { v.posts = posts })
}

func (v *PostView) SetSearch(term string) {
	v.mu.Lock()
	v.search = term
	v.mu.Unlock()
}

func (v *PostView) SetTag(tag string) {
	v.mu.Lock()
	v.tag = tag
	v.mu.Unlock()
}

func (v *PostView) Snapshot() PostSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return PostSnapshot{
		Posts:    FilterPosts(v.posts, PostFilter{Search: v.search, Tag: v.tag, AuthorID: v.author}),
		Tags:     AllTags(v.posts),
		Trending: Trending(v.posts),
		Search:   v.search,
		Tag:      v.tag,
		Loading:  v.loading,
		Error:    v.errMsg,
	}
}

// Submit 发帖；内容为空白时不会调用文档库
func (v *PostView) Submit(ctx context.Context, content string, tags []string) (string, error) {
	if err := service.ValidatePost(content); err != nil {
		return "", v.fail(err)
	}
	var id string
	err := v.mutate(ctx, "create", Mutation{Kind: "post"}, func() error {
		var err error
		id, err = v.src.Create(ctx, content, v.viewer.UID, v.viewer.DisplayName, tags)
		return err
	}, v.Load)
	return id, err
}

func (v *PostView) Like(ctx context.Context, postID string) (bool, error) {
	var liked bool
	err := v.mutate(ctx, "like:"+postID, Mutation{Kind: "like", EntityID: postID}, func() error {
		var err error
		liked, err = v.src.ToggleLike(ctx, postID, v.viewer.UID)
		return err
	}, v.Load)
	return liked, err
}

func (v *PostView) Comment(ctx context.Context, postID, text string) (model.Comment, error) {
	if err := service.ValidateComment(text); err != nil {
		return model.Comment{}, v.fail(err)
	}
	var c model.Comment
	err := v.mutate(ctx, "comment:"+postID, Mutation{Kind: "comment", EntityID: postID}, func() error {
		var err error
		c, err = v.src.AddComment(ctx, postID, v.viewer.UID, v.viewer.DisplayName, text)
		return err
	}, v.Load)
	return c, err
}
