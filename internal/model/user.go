package model

import (
	"time"
)

// RoleMember 注册用户的默认角色；角色只存储与展示，不参与权限判断
const RoleMember = "member"

// User 用户模型
// 索引与唯一约束：用户名唯一、邮箱唯一
// 说明：密码仅存储哈希（PasswordHash），不存储明文
// IsOnline/LastSeen 由连接生命周期维护，用户不做物理删除

type User struct {
	ID           uint       `gorm:"primaryKey"`
	Username     string     `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Email        string     `gorm:"type:varchar(128);not null;uniqueIndex;comment:邮箱"`
	PasswordHash string     `gorm:"type:varchar(255);not null;comment:密码哈希"`
	IsOnline     bool       `gorm:"not null;default:false;comment:是否在线"`
	LastSeen     *time.Time `gorm:"comment:最近在线时间"`
	Status       string     `gorm:"type:varchar(32);default:'Available';comment:状态"`
	CustomStatus string     `gorm:"type:varchar(100);comment:自定义状态"`
	StatusEmoji  string     `gorm:"type:varchar(32);comment:状态表情"`
	Role         string     `gorm:"type:varchar(16);not null;default:'member';comment:角色"`
	Bio          string     `gorm:"type:varchar(500);comment:个人简介"`
	JoinDate     time.Time  `gorm:"autoCreateTime;comment:注册时间"`
	UpdatedAt    time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名（因全局配置使用单数表名，这里与结构体名一致为 user）
func (User) TableName() string { return "user" }
