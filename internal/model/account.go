package model

import "time"

// Account 登录凭据，存放在 MySQL；UID 与文档库中的用户资料对应
type Account struct {
	ID        uint64 `gorm:"primaryKey"`
	UID       string `gorm:"uniqueIndex;size:64;not null"`
	Email     string `gorm:"uniqueIndex;size:128;not null"`
	Password  string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string {
	return "accounts"
}
