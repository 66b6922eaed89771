package handler

import (
	"errors"
	"net/http"

	"campus_feed/internal/feed"
	"campus_feed/internal/middleware"
	"campus_feed/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
)

// statusOf 业务错误分类 -> HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, feed.ErrBusy), errors.Is(err, feed.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrRemote):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		glog.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

func currentUser(c *gin.Context) (string, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "unauthorized"})
	}
	return uid, ok
}

// viewerOf 浏览者信息来自用户资料（isAdmin 决定能否创建活动）
func viewerOf(c *gin.Context, profiles *service.ProfileService, uid string) (feed.Viewer, bool) {
	p, err := profiles.Get(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return feed.Viewer{}, false
	}
	return feed.Viewer{UID: uid, DisplayName: p.DisplayName, IsAdmin: p.IsAdmin}, true
}

// withView 取当前用户的视图执行 run。视图在请求途中被关闭（登录态变化、被淘汰）时，
// 换一个新建的视图重试一次；ErrClosed 只会在写入之前出现，重试不会重复提交
func withView[V any](c *gin.Context, get func(*gin.Context) (V, bool), run func(V) error) (V, bool) {
	v, ok := get(c)
	if !ok {
		return v, false
	}
	err := run(v)
	if errors.Is(err, feed.ErrClosed) {
		if v, ok = get(c); !ok {
			return v, false
		}
		err = run(v)
	}
	if err != nil {
		writeError(c, err)
		return v, false
	}
	return v, true
}
