package model

import "time"

// 表情回应的目标类型
const (
	TargetMessage = "message"
	TargetThread  = "thread"
)

// Reaction 表情回应
// (target_kind, target_id, user_id, emoji) 唯一，重复回应即取消

type Reaction struct {
	ID         uint      `gorm:"primaryKey"`
	TargetKind string    `gorm:"type:varchar(16);not null;uniqueIndex:uk_reaction_target_user_emoji,priority:1;comment:目标类型"`
	TargetID   uint      `gorm:"not null;uniqueIndex:uk_reaction_target_user_emoji,priority:2;comment:目标ID"`
	UserID     uint      `gorm:"not null;uniqueIndex:uk_reaction_target_user_emoji,priority:3;index;comment:用户ID"`
	User       *User     `gorm:"foreignKey:UserID"`
	Emoji      string    `gorm:"type:varchar(32);not null;uniqueIndex:uk_reaction_target_user_emoji,priority:4;comment:表情"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
}

func (Reaction) TableName() string { return "reaction" }
