package model

import (
	"time"
)

// 附件向量化状态
const (
	EmbeddingSuccess = "success"
	EmbeddingFailed  = "failed"
	EmbeddingSkipped = "skipped"
)

// Message 消息模型
// ParentID 仅允许一层回复，回复的回复会被拒绝
// 附件字段 FilePath 为空表示无附件

type Message struct {
	ID              uint       `gorm:"primaryKey"`
	ChannelID       uint       `gorm:"not null;index:idx_message_channel_created,priority:1;comment:频道ID"`
	Channel         *Channel   `gorm:"foreignKey:ChannelID"`
	UserID          uint       `gorm:"not null;index;comment:发送者ID"`
	User            *User      `gorm:"foreignKey:UserID"`
	Content         string     `gorm:"type:text;not null;comment:消息内容"`
	ParentID        *uint      `gorm:"index;comment:被回复消息ID"`
	FileName        string     `gorm:"type:varchar(255);comment:附件原始文件名"`
	FilePath        string     `gorm:"type:varchar(255);comment:附件存储路径"`
	FileType        string     `gorm:"type:varchar(128);comment:附件类型"`
	EmbeddingStatus string     `gorm:"type:varchar(16);comment:附件向量化状态"`
	IsPinned        bool       `gorm:"not null;default:false;index;comment:是否置顶"`
	PinnedAt        *time.Time `gorm:"comment:置顶时间"`
	PinnedByID      *uint      `gorm:"comment:置顶操作人ID"`
	PinnedBy        *User      `gorm:"foreignKey:PinnedByID"`
	CreatedAt       time.Time  `gorm:"index:idx_message_channel_created,priority:2;comment:创建时间"`
}

func (Message) TableName() string { return "message" }

// HasAttachment 是否带附件
func (m *Message) HasAttachment() bool { return m.FilePath != "" }
