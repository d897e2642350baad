package service

import (
	"context"
	"time"

	"teamflow/internal/repository"
	"teamflow/pkg/logger"
	"teamflow/pkg/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresenceMirror 在线状态的外部镜像（Redis），可为空
type PresenceMirror interface {
	SetUserPresence(ctx context.Context, userID uint, username string, online bool) error
	RefreshUserPresence(ctx context.Context, userID uint) error
}

// PresenceService 连接生命周期驱动的在线状态
// trackSessions=false 时任一连接断开即标记离线；true 时最后一个连接断开才离线
type PresenceService struct {
	users         *repository.UserRepository
	hub           websocket.Broadcaster
	mirror        PresenceMirror
	trackSessions bool
	now           func() time.Time
}

func NewPresenceService(orm *gorm.DB, hub websocket.Broadcaster, mirror PresenceMirror, trackSessions bool) *PresenceService {
	return &PresenceService{
		users:         repository.NewUserRepository(orm),
		hub:           hub,
		mirror:        mirror,
		trackSessions: trackSessions,
		now:           time.Now,
	}
}

// Connected 标记在线并全局广播 status_change
func (s *PresenceService) Connected(ctx context.Context, userID uint, username string) error {
	if err := s.users.SetPresence(ctx, userID, true, s.now().UTC()); err != nil {
		return persistence("Failed to update presence", err)
	}
	s.mirrorSet(ctx, userID, username, true)
	s.broadcast(userID, "online")
	return nil
}

// Disconnected 连接断开；remaining 为该用户仍存活的连接数
func (s *PresenceService) Disconnected(ctx context.Context, userID uint, username string, remaining int) error {
	if s.trackSessions && remaining > 0 {
		return nil
	}
	if err := s.users.SetPresence(ctx, userID, false, s.now().UTC()); err != nil {
		return persistence("Failed to update presence", err)
	}
	s.mirrorSet(ctx, userID, username, false)
	s.broadcast(userID, "offline")
	return nil
}

// Heartbeat 刷新镜像中的在线TTL
func (s *PresenceService) Heartbeat(ctx context.Context, userID uint, username string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.RefreshUserPresence(ctx, userID); err != nil {
		// 镜像中的 key 已过期，重新写入
		s.mirrorSet(ctx, userID, username, true)
	}
}

func (s *PresenceService) mirrorSet(ctx context.Context, userID uint, username string, online bool) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SetUserPresence(ctx, userID, username, online); err != nil {
		logger.Warn("同步在线状态到Redis失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *PresenceService) broadcast(userID uint, status string) {
	s.hub.BroadcastGlobal(websocket.Event{
		Type: EventStatusChange,
		Data: map[string]interface{}{"user_id": userID, "status": status},
	})
}
