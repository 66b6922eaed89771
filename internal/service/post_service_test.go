package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"

	"campus_feed/internal/repository/docstore"
)

func TestToggleLikeTwiceRestores(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(tickingStore())

	id, err := svc.Create(ctx, "hello campus", "author", "Author", []string{"Clubs"})
	assert.Equal(t, nil, err)
	_, err = svc.ToggleLike(ctx, id, "u0")
	assert.Equal(t, nil, err)

	before, _ := svc.Get(ctx, id)

	liked, err := svc.ToggleLike(ctx, id, "u1")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, liked)
	mid, _ := svc.Get(ctx, id)
	assert.Equal(t, 2, mid.LikeCount)
	assert.Equal(t, true, mid.LikedBy("u1"))

	liked, err = svc.ToggleLike(ctx, id, "u1")
	assert.Equal(t, nil, err)
	assert.Equal(t, false, liked)

	after, _ := svc.Get(ctx, id)
	assert.Equal(t, before.Likes, after.Likes)
	assert.Equal(t, before.LikeCount, after.LikeCount)
}

func TestToggleLikeDistinctUsers(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(tickingStore())
	id, _ := svc.Create(ctx, "popular", "author", "Author", nil)

	const n = 7
	for i := 0; i < n; i++ {
		liked, err := svc.ToggleLike(ctx, id, fmt.Sprintf("user-%d", i))
		assert.Equal(t, nil, err)
		assert.Equal(t, true, liked)
	}
	p, err := svc.Get(ctx, id)
	assert.Equal(t, nil, err)
	assert.Equal(t, n, p.LikeCount)
	assert.Equal(t, n, len(p.Likes))
}

func TestToggleLikeNotFound(t *testing.T) {
	svc := NewPostService(tickingStore())
	_, err := svc.ToggleLike(context.Background(), "nope", "u1")
	assert.Equal(t, true, errors.Is(err, ErrNotFound))
	assert.Equal(t, false, errors.Is(err, ErrRemote))
	assert.Equal(t, "Post not found", err.Error())
}

func TestAddCommentAppendsAndCounts(t *testing.T) {
	ctx := context.Background()
	store := tickingStore()
	svc := NewPostService(store)
	id, _ := svc.Create(ctx, "exam tips", "author", "Author", nil)
	for _, text := range []string{"one", "two"} {
		_, err := svc.AddComment(ctx, id, "u0", "Zed", text)
		assert.Equal(t, nil, err)
	}
	p, _ := svc.Get(ctx, id)
	assert.Equal(t, 2, p.CommentCount)

	c, err := svc.AddComment(ctx, id, "u1", "Alice", "Hello")
	assert.Equal(t, nil, err)

	p, _ = svc.Get(ctx, id)
	assert.Equal(t, 3, p.CommentCount)
	assert.Equal(t, 3, len(p.Comments))
	last := p.Comments[2]
	assert.Equal(t, "u1", last.UserID)
	assert.Equal(t, "Alice", last.UserName)
	assert.Equal(t, "Hello", last.Text)
	assert.Equal(t, true, c.CreatedAt.Equal(last.CreatedAt))
	assert.Equal(t, false, last.CreatedAt.IsZero())
}

func TestAddCommentNotFound(t *testing.T) {
	_, err := NewPostService(tickingStore()).AddComment(context.Background(), "nope", "u1", "Alice", "Hi")
	assert.Equal(t, true, errors.Is(err, ErrNotFound))
}

func TestListByTagExactMembership(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(tickingStore())
	first, _ := svc.Create(ctx, "finals week", "a", "A", []string{"Finals", "Clubs"})
	_, _ = svc.Create(ctx, "club fair", "b", "B", []string{"Clubs"})
	_, _ = svc.Create(ctx, "lowercase", "c", "C", []string{"finals"})

	posts, err := svc.ListByTag(ctx, "Finals")
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(posts))
	assert.Equal(t, first, posts[0].ID)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(tickingStore())
	ids := make([]string, 0)
	for i := 0; i < 60; i++ {
		id, _ := svc.Create(ctx, fmt.Sprintf("post %d", i), "a", "A", nil)
		ids = append(ids, id)
	}

	posts, err := svc.List(ctx, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, DefaultListLimit, len(posts))
	assert.Equal(t, ids[59], posts[0].ID)
	assert.Equal(t, ids[58], posts[1].ID)

	posts, _ = svc.List(ctx, 3)
	assert.Equal(t, 3, len(posts))

	// 新帖的数组字段写成空数组而不是 null
	assert.Equal(t, 0, len(posts[0].Likes))
	assert.Equal(t, 0, len(posts[0].Tags))
}

func TestValidatePostBlocksBeforeStore(t *testing.T) {
	store := tickingStore()
	svc := NewPostService(store)

	for _, content := range []string{"", "   ", "\n\t"} {
		err := ValidatePost(content)
		assert.Equal(t, true, errors.Is(err, ErrValidation))
		assert.Equal(t, "Post content cannot be empty", err.Error())
	}
	assert.Equal(t, 0, store.Len(docstore.CollectionPosts))

	// Create 本身不做校验
	_, err := svc.Create(context.Background(), "   ", "a", "A", nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, store.Len(docstore.CollectionPosts))
}

func TestPostServiceRecordsInteractions(t *testing.T) {
	ctx := context.Background()
	rec := &recordedInteractions{}
	svc := NewPostService(tickingStore(), WithRecorder(rec))

	id, _ := svc.Create(ctx, "x", "a", "A", nil)
	_, _ = svc.ToggleLike(ctx, id, "u1")
	_, _ = svc.ToggleLike(ctx, id, "u1")
	_, _ = svc.AddComment(ctx, id, "u1", "U", "hi")
	_, _ = svc.ToggleLike(ctx, "missing", "u1")

	assert.Equal(t, []string{EventPostCreated, EventLike, EventUnlike, EventComment}, rec.types())
}

type failingStore struct {
	docstore.Store
	err error
}

func (f failingStore) Find(context.Context, docstore.Query) ([]docstore.Document, error) {
	return nil, f.err
}

func (f failingStore) Get(context.Context, string, string) (docstore.Document, error) {
	return docstore.Document{}, f.err
}

func TestRemoteErrorKeepsStoreMessage(t *testing.T) {
	store := failingStore{Store: tickingStore(), err: errors.New("connection reset by peer")}
	svc := NewPostService(store)

	_, err := svc.List(context.Background(), 10)
	assert.Equal(t, true, errors.Is(err, ErrRemote))
	assert.Equal(t, "connection reset by peer", err.Error())

	_, err = svc.ToggleLike(context.Background(), "p1", "u1")
	assert.Equal(t, true, errors.Is(err, ErrRemote))
	assert.Equal(t, false, errors.Is(err, ErrNotFound))
}
