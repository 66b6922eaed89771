package service

import (
	"context"
	"time"

	"campus_feed/internal/model"
	"campus_feed/internal/repository/docstore"
)

const (
	DefaultListLimit = 50
	postNotFound     = "Post not found"
)

var likeRelation = relation[model.Post]{
	name:        "like",
	collection:  docstore.CollectionPosts,
	field:       "likes",
	countField:  "likeCount",
	notFoundMsg: postNotFound,
	members:     func(p *model.Post) []string { return p.Likes },
}

type PostService struct {
	store docstore.Store
	opts  options
}

func NewPostService(store docstore.Store, opts ...Option) *PostService {
	return &PostService{store: store, opts: buildOptions(opts)}
}

// Create 发帖。内容校验由调用方完成（ValidatePost），这里不做拦截
func (s *PostService) Create(ctx context.Context, content, authorID, authorName string, tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	post := model.Post{
		Content:    content,
		AuthorID:   authorID,
		AuthorName: authorName,
		Tags:       tags,
		Likes:      []string{},
		Comments:   []model.Comment{},
		CreatedAt:  s.store.Now(),
	}
	id, err := s.store.Insert(ctx, docstore.CollectionPosts, post)
	observe("post_create", err)
	if err != nil {
		return "", remote(err)
	}
	s.opts.recorder.Record(ctx, Interaction{
		Type: EventPostCreated, EntityID: id, UserID: authorID,
		Data: map[string]any{"tags": tags},
	})
	return id, nil
}

// List 按 createdAt 倒序，maxCount<=0 时取默认 50 条
func (s *PostService) List(ctx context.Context, maxCount int) ([]model.Post, error) {
	if maxCount <= 0 {
		maxCount = DefaultListLimit
	}
	return s.find(ctx, docstore.Query{
		Collection: docstore.CollectionPosts,
		OrderBy:    "createdAt",
		Direction:  docstore.Descending,
		Limit:      maxCount,
	})
}

// ListByTag 标签精确匹配
func (s *PostService) ListByTag(ctx context.Context, tag string) ([]model.Post, error) {
	return s.find(ctx, docstore.Query{
		Collection: docstore.CollectionPosts,
		Filters:    []docstore.Filter{docstore.Contains("tags", tag)},
		OrderBy:    "createdAt",
		Direction:  docstore.Descending,
	})
}

func (s *PostService) find(ctx context.Context, q docstore.Query) ([]model.Post, error) {
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, remote(err)
	}
	posts, err := docstore.DecodeAll[model.Post](docs)
	if err != nil {
		return nil, remote(err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionPosts, postID)
	if err != nil {
		return nil, storeErr(err, postNotFound)
	}
	var p model.Post
	if err = doc.Decode(&p); err != nil {
		return nil, remote(err)
	}
	return &p, nil
}

// ToggleLike 已点赞则取消，否则点赞；返回操作后是否处于点赞状态
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked, _, err := toggleMembership(ctx, s.store, s.opts.locker, likeRelation, postID, userID,
		func(_ time.Time) any { return userID },
		userID,
	)
	observe("like_toggle", err)
	if err != nil {
		return false, err
	}
	typ := EventUnlike
	if liked {
		typ = EventLike
	}
	s.opts.recorder.Record(ctx, Interaction{Type: typ, EntityID: postID, UserID: userID})
	return liked, nil
}

// AddComment 追加评论并将 commentCount 原子加一，两者在同一次更新中写入
func (s *PostService) AddComment(ctx context.Context, postID, userID, userName, text string) (model.Comment, error) {
	// 与点赞切换及计数对账共用同一把文档锁
	unlock, err := lockDoc(ctx, s.opts.locker, docstore.CollectionPosts, postID)
	if err != nil {
		observe("comment_add", err)
		return model.Comment{}, err
	}
	defer unlock()

	if _, err = s.store.Get(ctx, docstore.CollectionPosts, postID); err != nil {
		observe("comment_add", err)
		return model.Comment{}, storeErr(err, postNotFound)
	}
	c := model.Comment{
		UserID:    userID,
		UserName:  userName,
		Text:      text,
		CreatedAt: s.store.Now(),
	}
	err = s.store.Update(ctx, docstore.CollectionPosts, postID, docstore.Update{
		Push: map[string]any{"comments": c},
		Inc:  map[string]int64{"commentCount": 1},
	})
	observe("comment_add", err)
	if err != nil {
		return model.Comment{}, storeErr(err, postNotFound)
	}
	s.opts.recorder.Record(ctx, Interaction{
		Type: EventComment, EntityID: postID, UserID: userID,
		Data: map[string]any{"text": text},
	})
	return c, nil
}
