package handler

import (
	"crypto/subtle"
	"net/http"

	"campus_feed/internal/feed"
	"campus_feed/internal/service"

	"github.com/gin-gonic/gin"
)

const ExternalSecretHeader = "X-External-Secret"

type UserHandler struct {
	auth           *service.AuthService
	profiles       *service.ProfileService
	posts          *service.PostService
	views          *feed.Registry[*feed.ProfileView]
	externalSecret string
	onProfile      func(uid string)
}

// RegisterReq 注册请求体
type RegisterReq struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DisplayName string   `json:"displayName"`
	Bio         string   `json:"bio"`
	Interests   []string `json:"interests"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ExternalLoginReq 第三方登录回调
type ExternalLoginReq struct {
	Provider    string `json:"provider"`
	Subject     string `json:"subject"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// UpdateProfileReq 为空的字段不修改
type UpdateProfileReq struct {
	DisplayName *string  `json:"displayName"`
	Bio         *string  `json:"bio"`
	Interests   []string `json:"interests"`
}

// NewUserHandler onProfile 在资料修改后调用，用于丢弃该用户缓存的视图
func NewUserHandler(auth *service.AuthService, profiles *service.ProfileService, posts *service.PostService,
	views *feed.Registry[*feed.ProfileView], externalSecret string, onProfile func(uid string)) *UserHandler {
	return &UserHandler{
		auth:           auth,
		profiles:       profiles,
		posts:          posts,
		views:          views,
		externalSecret: externalSecret,
		onProfile:      onProfile,
	}
}

func loginResponse(c *gin.Context, res *service.LoginResult) {
	c.JSON(http.StatusOK, gin.H{
		"AccessToken":  res.Token.AccessToken,
		"RefreshToken": res.Token.RefreshToken,
		"profile":      res.Profile,
	})
}

// Register 注册接口
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Interests:   req.Interests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	loginResponse(c, res)
}

// Login 登录接口
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	loginResponse(c, res)
}

// External 第三方登录，只接受携带共享密钥的回调
func (h *UserHandler) External(c *gin.Context) {
	secret := c.GetHeader(ExternalSecretHeader)
	if h.externalSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.externalSecret)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"msg": "external login disabled"})
		return
	}
	var req ExternalLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	res, err := h.auth.LoginExternal(c.Request.Context(), service.ExternalIdentity{
		Provider:    req.Provider,
		Subject:     req.Subject,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	loginResponse(c, res)
}

func (h *UserHandler) Logout(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), uid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// TokenRefresh 利用refresh来更新access
func (h *UserHandler) TokenRefresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	token, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"AccessToken": token.AccessToken, "RefreshToken": token.RefreshToken})
}

// Profile 个人主页：资料 + 该用户的帖子
func (h *UserHandler) Profile(c *gin.Context) {
	v, ok := withView(c, h.profileView, func(v *feed.ProfileView) error {
		return v.Load(c.Request.Context())
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.Snapshot())
}

func (h *UserHandler) profileView(c *gin.Context) (*feed.ProfileView, bool) {
	uid, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	target := c.Param("uid")
	key := "profile:" + uid + ":" + target
	if v, ok := h.views.Lookup(key); ok {
		return v, true
	}
	viewer, ok := viewerOf(c, h.profiles, uid)
	if !ok {
		return nil, false
	}
	return h.views.Get(uid, key, func() *feed.ProfileView {
		return feed.NewProfileView(h.profiles, h.posts, viewer, target)
	}), true
}

// UpdateProfile 修改自己的资料
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), uid, service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Interests:   req.Interests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if h.onProfile != nil {
		h.onProfile(uid)
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
