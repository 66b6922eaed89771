package model

import "time"

// Event 校园活动，Date 同时是默认排序键
type Event struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description,omitempty"`
	Date        time.Time `bson:"date" json:"date"`
	Location    string    `bson:"location" json:"location"`
	Department  string    `bson:"department" json:"department"`
	CreatedBy   string    `bson:"createdBy" json:"createdBy"`
	RSVPs       []RSVP    `bson:"rsvps" json:"rsvps"`
	RSVPCount   int       `bson:"rsvpCount" json:"rsvpCount"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// RSVP 报名记录，按 UserID 判断是否已报名
type RSVP struct {
	UserID   string    `bson:"userId" json:"userId"`
	UserName string    `bson:"userName" json:"userName"`
	RSVPedAt time.Time `bson:"rsvpedAt" json:"rsvpedAt"`
}

// RSVPedBy 判断用户是否已报名
func (e *Event) RSVPedBy(userID string) bool {
	for _, r := range e.RSVPs {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
