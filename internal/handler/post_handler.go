package handler

import (
	"net/http"

	"campus_feed/internal/feed"
	"campus_feed/internal/model"
	"campus_feed/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts    *service.PostService
	profiles *service.ProfileService
	views    *feed.Registry[*feed.PostView]
}

type CreatePostReq struct {
	Content string `json:"content"`
	Tags    string `json:"tags"` // 逗号分隔
}

type CommentReq struct {
	Text string `json:"text"`
}

func NewPostHandler(posts *service.PostService, profiles *service.ProfileService, views *feed.Registry[*feed.PostView]) *PostHandler {
	return &PostHandler{posts: posts, profiles: profiles, views: views}
}

func (h *PostHandler) view(c *gin.Context) (*feed.PostView, bool) {
	uid, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	key := "feed:" + uid
	if v, ok := h.views.Lookup(key); ok {
		return v, true
	}
	viewer, ok := viewerOf(c, h.profiles, uid)
	if !ok {
		return nil, false
	}
	return h.views.Get(uid, key, func() *feed.PostView {
		return feed.NewPostView(h.posts, viewer)
	}), true
}

// Feed 动态流，支持 q 搜索和 tag 过滤
func (h *PostHandler) Feed(c *gin.Context) {
	v, ok := withView(c, h.view, func(v *feed.PostView) error {
		return v.Load(c.Request.Context())
	})
	if !ok {
		return
	}
	v.SetSearch(c.Query("q"))
	v.SetTag(c.Query("tag"))
	c.JSON(http.StatusOK, v.Snapshot())
}

// CreatePost 创建帖子接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	var id string
	v, ok := withView(c, h.view, func(v *feed.PostView) (err error) {
		id, err = v.Submit(c.Request.Context(), req.Content, feed.ParseTags(req.Tags))
		return err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "feed": v.Snapshot()})
}

// ListByTag 按标签查询
func (h *PostHandler) ListByTag(c *gin.Context) {
	posts, err := h.posts.ListByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Like 点赞/取消点赞
func (h *PostHandler) Like(c *gin.Context) {
	var liked bool
	v, ok := withView(c, h.view, func(v *feed.PostView) (err error) {
		liked, err = v.Like(c.Request.Context(), c.Param("id"))
		return err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "feed": v.Snapshot()})
}

func (h *PostHandler) Comment(c *gin.Context) {
	var req CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	var comment model.Comment
	v, ok := withView(c, h.view, func(v *feed.PostView) (err error) {
		comment, err = v.Comment(c.Request.Context(), c.Param("id"), req.Text)
		return err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment, "feed": v.Snapshot()})
}
