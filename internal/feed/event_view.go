package feed

import (
	"context"
	"time"

	"campus_feed/internal/model"
	"campus_feed/internal/service"
)

type EventSource interface {
	List(ctx context.Context) ([]model.Event, error)
	ListByDepartment(ctx context.Context, department string) ([]model.Event, error)
	Create(ctx context.Context, title, description string, date time.Time, location, department, createdBy string) (string, error)
	ToggleRSVP(ctx context.Context, eventID, userID, userName string) (bool, error)
}

type EventInput struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Department  string
}

type EventSnapshot struct {
	Events      []model.Event `json:"events"`
	Departments []string      `json:"departments"`
	Department  string        `json:"department"`
	Search      string        `json:"search"`
	CanCreate   bool          `json:"canCreate"`
	Loading     bool          `json:"loading"`
	Error       string        `json:"error,omitempty"`
}

// EventView 活动列表。院系切换会重新查询文档库，搜索只在本地派生
type EventView struct {
	core
	src        EventSource
	viewer     Viewer
	events     []model.Event
	department string
	search     string
}

func NewEventView(src EventSource, viewer Viewer, opts ...ViewOption) *EventView {
	cfg := buildConfig(opts)
	v := &EventView{
		src:    src,
		viewer: viewer,
		events: []model.Event{},
	}
	v.init(cfg.sync)
	return v
}

// Load 按当前院系拉取快照；加载期间院系又变化时，旧结果会被丢弃
func (v *EventView) Load(ctx context.Context) error {
	gen, err := v.startLoad()
	if err != nil {
		return err
	}
	v.mu.Lock()
	dept := v.department
	v.mu.Unlock()

	var events []model.Event
	if dept != "" {
		events, err = v.src.ListByDepartment(ctx, dept)
	} else {
		events, err = v.src.List(ctx)
	}
	return v.finishLoad(gen, err, func() { v.events = events })
}

// SetDepartment 切换院系并重新查询
func (v *EventView) SetDepartment(ctx context.Context, department string) error {
	v.mu.Lock()
	v.department = department
	v.mu.Unlock()
	return v.Load(ctx)
}

func (v *EventView) SetSearch(term string) {
	v.mu.Lock()
	v.search = term
	v.mu.Unlock()
}

func (v *EventView) Snapshot() EventSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return EventSnapshot{
		Events:      FilterEvents(v.events, EventFilter{Search: v.search}),
		Departments: Departments(v.events),
		Department:  v.department,
		Search:      v.search,
		CanCreate:   v.viewer.IsAdmin,
		Loading:     v.loading,
		Error:       v.errMsg,
	}
}

// Create 仅管理员可创建
func (v *EventView) Create(ctx context.Context, in EventInput) (string, error) {
	if !v.viewer.IsAdmin {
		return "", v.fail(&service.Error{Kind: service.ErrForbidden, Msg: "Only admins can create events"})
	}
	if err := service.ValidateEvent(in.Title, in.Date, in.Location, in.Department); err != nil {
		return "", v.fail(err)
	}
	var id string
	err := v.mutate(ctx, "create", Mutation{Kind: "event"}, func() error {
		var err error
		id, err = v.src.Create(ctx, in.Title, in.Description, in.Date, in.Location, in.Department, v.viewer.UID)
		return err
	}, v.Load)
	return id, err
}

func (v *EventView) RSVP(ctx context.Context, eventID string) (bool, error) {
	var rsvped bool
	err := v.mutate(ctx, "rsvp:"+eventID, Mutation{Kind: "rsvp", EntityID: eventID}, func() error {
		var err error
		rsvped, err = v.src.ToggleRSVP(ctx, eventID, v.viewer.UID, v.viewer.DisplayName)
		return err
	}, v.Load)
	return rsvped, err
}
