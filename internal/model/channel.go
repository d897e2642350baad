package model

import "time"

// Channel 频道模型
// CreatedByID 为空表示系统创建（如默认频道）

type Channel struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"type:varchar(64);not null;index;comment:频道名称"`
	Description string    `gorm:"type:varchar(256);comment:频道描述"`
	CreatedByID *uint     `gorm:"index;comment:创建者ID"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID"`
	IsPrivate   bool      `gorm:"not null;default:false;comment:是否私有"`
	CreatedAt   time.Time `gorm:"comment:创建时间"`
}

func (Channel) TableName() string { return "channel" }
