// Package dbtest 提供基于内存 SQLite 的测试数据库
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"teamflow/config"
	"teamflow/internal/model"
	"teamflow/pkg/db"

	"gorm.io/gorm"
)

var seq atomic.Int64

// New 打开独立的内存数据库并完成迁移，测试结束时自动关闭
// 与生产环境共用 db.Open，sqlite 下为单连接，并发测试中的事务自然串行
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Database: fmt.Sprintf("file:teamflow_test_%d?mode=memory&cache=shared", seq.Add(1)),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// CreateUser 创建测试用户
func CreateUser(t testing.TB, gdb *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         model.RoleMember,
		Status:       "Available",
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateChannel 创建测试频道
func CreateChannel(t testing.TB, gdb *gorm.DB, name string) *model.Channel {
	t.Helper()
	c := &model.Channel{Name: name}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create channel %s: %v", name, err)
	}
	return c
}
