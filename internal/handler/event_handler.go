package handler

import (
	"net/http"
	"time"

	"campus_feed/internal/feed"
	"campus_feed/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	events   *service.EventService
	profiles *service.ProfileService
	views    *feed.Registry[*feed.EventView]
}

type CreateEventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Department  string    `json:"department"`
}

func NewEventHandler(events *service.EventService, profiles *service.ProfileService, views *feed.Registry[*feed.EventView]) *EventHandler {
	return &EventHandler{events: events, profiles: profiles, views: views}
}

func (h *EventHandler) view(c *gin.Context) (*feed.EventView, bool) {
	uid, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	key := "events:" + uid
	if v, ok := h.views.Lookup(key); ok {
		return v, true
	}
	viewer, ok := viewerOf(c, h.profiles, uid)
	if !ok {
		return nil, false
	}
	return h.views.Get(uid, key, func() *feed.EventView {
		return feed.NewEventView(h.events, viewer)
	}), true
}

// List 活动列表；department 由文档库过滤，q 在本地搜索
func (h *EventHandler) List(c *gin.Context) {
	v, ok := withView(c, h.view, func(v *feed.EventView) error {
		return v.SetDepartment(c.Request.Context(), c.Query("department"))
	})
	if !ok {
		return
	}
	v.SetSearch(c.Query("q"))
	c.JSON(http.StatusOK, v.Snapshot())
}

// Create 仅管理员
func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	in := feed.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Department:  req.Department,
	}
	var id string
	v, ok := withView(c, h.view, func(v *feed.EventView) (err error) {
		id, err = v.Create(c.Request.Context(), in)
		return err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "events": v.Snapshot()})
}

// RSVP 报名/取消报名
func (h *EventHandler) RSVP(c *gin.Context) {
	var rsvped bool
	v, ok := withView(c, h.view, func(v *feed.EventView) (err error) {
		rsvped, err = v.RSVP(c.Request.Context(), c.Param("id"))
		return err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"rsvped": rsvped, "events": v.Snapshot()})
}
