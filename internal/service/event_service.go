package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"campus_feed/internal/model"
	"campus_feed/internal/repository/docstore"
)

const eventNotFound = "Event not found"

func rsvpUserIDs(e *model.Event) []string {
	ids := make([]string, 0, len(e.RSVPs))
	for _, r := range e.RSVPs {
		ids = append(ids, r.UserID)
	}
	return ids
}

var rsvpRelation = relation[model.Event]{
	name:        "rsvp",
	collection:  docstore.CollectionEvents,
	field:       "rsvps",
	countField:  "rsvpCount",
	notFoundMsg: eventNotFound,
	members:     rsvpUserIDs,
}

type EventService struct {
	store docstore.Store
	opts  options
}

func NewEventService(store docstore.Store, opts ...Option) *EventService {
	return &EventService{store: store, opts: buildOptions(opts)}
}

// Create 创建活动；是否有权限由调用方判断
func (s *EventService) Create(ctx context.Context, title, description string, date time.Time, location, department, createdBy string) (string, error) {
	ev := model.Event{
		Title:       title,
		Description: description,
		Date:        date,
		Location:    location,
		Department:  department,
		CreatedBy:   createdBy,
		RSVPs:       []model.RSVP{},
		CreatedAt:   s.store.Now(),
	}
	id, err := s.store.Insert(ctx, docstore.CollectionEvents, ev)
	observe("event_create", err)
	if err != nil {
		return "", remote(err)
	}
	s.opts.recorder.Record(ctx, Interaction{
		Type: EventCreated, EntityID: id, UserID: createdBy,
		Data: map[string]any{"department": department},
	})
	return id, nil
}

// List 按活动日期升序
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.find(ctx, docstore.Query{
		Collection: docstore.CollectionEvents,
		OrderBy:    "date",
		Direction:  docstore.Ascending,
	})
}

// ListByDepartment 院系精确匹配，在文档库侧过滤
func (s *EventService) ListByDepartment(ctx context.Context, department string) ([]model.Event, error) {
	return s.find(ctx, docstore.Query{
		Collection: docstore.CollectionEvents,
		Filters:    []docstore.Filter{docstore.Eq("department", department)},
		OrderBy:    "date",
		Direction:  docstore.Ascending,
	})
}

func (s *EventService) find(ctx context.Context, q docstore.Query) ([]model.Event, error) {
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, remote(err)
	}
	events, err := docstore.DecodeAll[model.Event](docs)
	if err != nil {
		return nil, remote(err)
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionEvents, eventID)
	if err != nil {
		return nil, storeErr(err, eventNotFound)
	}
	var e model.Event
	if err = doc.Decode(&e); err != nil {
		return nil, remote(err)
	}
	return &e, nil
}

// ToggleRSVP 按 userId 判断是否已报名，已报名则取消
func (s *EventService) ToggleRSVP(ctx context.Context, eventID, userID, userName string) (bool, error) {
	rsvped, ev, err := toggleMembership(ctx, s.store, s.opts.locker, rsvpRelation, eventID, userID,
		func(now time.Time) any {
			return model.RSVP{UserID: userID, UserName: userName, RSVPedAt: now}
		},
		bson.M{"userId": userID},
	)
	observe("rsvp_toggle", err)
	if err != nil {
		return false, err
	}
	typ := EventRSVPCanceled
	if rsvped {
		typ = EventRSVP
	}
	s.opts.recorder.Record(ctx, Interaction{Type: typ, EntityID: eventID, UserID: userID})
	if rsvped {
		ev.ID = eventID
		s.opts.notifier.RSVPConfirmed(ctx, *ev, userID, userName)
	}
	return rsvped, nil
}
