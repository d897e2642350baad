package model

import "time"

// UserBookmark 用户收藏，(user_id, message_id) 唯一

type UserBookmark struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_bookmark_user_message,priority:1;comment:用户ID"`
	MessageID uint      `gorm:"not null;uniqueIndex:uk_bookmark_user_message,priority:2;index;comment:消息ID"`
	Message   *Message  `gorm:"foreignKey:MessageID"`
	Note      string    `gorm:"type:varchar(256);comment:备注"`
	CreatedAt time.Time `gorm:"comment:收藏时间"`
}

func (UserBookmark) TableName() string { return "user_bookmark" }
