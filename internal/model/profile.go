package model

import "time"

// UserProfile 用户资料，存放在文档库 users 集合，以 uid 为文档 ID
type UserProfile struct {
	UID         string    `bson:"_id" json:"uid"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	Email       string    `bson:"email" json:"email"`
	Bio         string    `bson:"bio" json:"bio"`
	Interests   []string  `bson:"interests" json:"interests"`
	IsAdmin     bool      `bson:"isAdmin" json:"isAdmin"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
