package router

import (
	"net/http"
	"time"

	"campus_feed/internal/handler"
	"campus_feed/internal/middleware"
	"campus_feed/internal/pkg"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	User        *handler.UserHandler
	Post        *handler.PostHandler
	Event       *handler.EventHandler
	Issuer      *pkg.TokenIssuer
	Tokens      middleware.TokenRegistry
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(d.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := middleware.AuthMiddleware(d.Issuer, d.Tokens)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", d.User.Register)
		userGroup.POST("/login", d.User.Login)
		userGroup.POST("/oauth", d.User.External)
		userGroup.POST("/logout", auth, d.User.Logout)
		userGroup.GET("/profile/:uid", auth, d.User.Profile)
		userGroup.PATCH("/profile", auth, d.User.UpdateProfile)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", d.User.TokenRefresh)
	}

	r.GET("/api/feed", auth, d.Post.Feed)

	// 帖子相关接口
	postGroup := r.Group("/api/post")
	postGroup.Use(auth)
	{
		postGroup.POST("/create", d.Post.CreatePost)
		postGroup.GET("/tag/:tag", d.Post.ListByTag)
		postGroup.POST("/:id/like", d.Post.Like)
		postGroup.POST("/:id/comment", d.Post.Comment)
	}

	// 活动相关接口
	eventGroup := r.Group("/api/event")
	eventGroup.Use(auth)
	{
		eventGroup.GET("/list", d.Event.List)
		eventGroup.POST("/create", d.Event.Create)
		eventGroup.POST("/:id/rsvp", d.Event.RSVP)
	}

	return r
}
