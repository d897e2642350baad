package model

import "time"

// Thread 话题回复
// MessageID 始终指向顶层消息；嵌套只通过 RepliedToID 表达，且必须在同一 MessageID 内

type Thread struct {
	ID          uint      `gorm:"primaryKey"`
	MessageID   uint      `gorm:"not null;index;comment:顶层消息ID"`
	RepliedToID *uint     `gorm:"index;comment:被回复的话题ID"`
	UserID      uint      `gorm:"not null;index;comment:回复者ID"`
	User        *User     `gorm:"foreignKey:UserID"`
	Content     string    `gorm:"type:text;not null;comment:回复内容"`
	CreatedAt   time.Time `gorm:"comment:创建时间"`
}

func (Thread) TableName() string { return "thread" }
