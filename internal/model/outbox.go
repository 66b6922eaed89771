package model

import "time"

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// InteractionOutbox 互动事件监控表
type InteractionOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:16;not null"` // like / unlike / comment / rsvp / unrsvp / post / event
	EntityID  string `gorm:"size:64;not null;index"`
	UserID    string `gorm:"size:64;not null"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (InteractionOutbox) TableName() string { return "interaction_outbox" }
