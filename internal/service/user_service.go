package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"teamflow/internal/model"
	"teamflow/internal/repository"
	"teamflow/pkg/jwt"
	"teamflow/pkg/logger"
	"teamflow/pkg/password"
	"teamflow/pkg/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCustomStatus = 100
	maxStatusEmoji  = 32
	recentActivity  = 5
)

// UserStats get_user_status 中的统计
type UserStats struct {
	TotalMessages       int64 `json:"total_messages"`
	ReactionsGiven      int64 `json:"reactions_given"`
	ChannelsJoined      int64 `json:"channels_joined"`
	ThreadsParticipated int64 `json:"threads_participated"`
}

// ActivityItem 最近发言
type ActivityItem struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// UserStatusView 用户状态详情
type UserStatusView struct {
	Username       string         `json:"username"`
	IsOnline       bool           `json:"is_online"`
	CustomStatus   string         `json:"custom_status"`
	StatusEmoji    string         `json:"status_emoji"`
	LastSeen       *string        `json:"last_seen"`
	Role           string         `json:"role"`
	JoinDate       string         `json:"join_date"`
	Bio            string         `json:"bio"`
	Stats          UserStats      `json:"stats"`
	RecentActivity []ActivityItem `json:"recent_activity"`
}

// UserService 用户注册登录与状态
type UserService struct {
	repo       *repository.UserRepository
	jwtService *jwt.JWTService
	hub        websocket.Broadcaster
}

func NewUserService(orm *gorm.DB, jwtService *jwt.JWTService, hub websocket.Broadcaster) *UserService {
	return &UserService{
		repo:       repository.NewUserRepository(orm),
		jwtService: jwtService,
		hub:        hub,
	}
}

// Register 注册
func (s *UserService) Register(ctx context.Context, username, email, plainPassword string) (*UserView, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || plainPassword == "" {
		return nil, "", validation("Username, email and password are required")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", validation("Username or email already exists")
	}

	hash, err := password.Hash(plainPassword)
	switch {
	case errors.Is(err, password.ErrTooShort):
		return nil, "", validation("Password is too short")
	case errors.Is(err, password.ErrTooLong):
		return nil, "", validation("Password is too long")
	case err != nil:
		return nil, "", err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       "Available",
		Role:         model.RoleMember,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", validation("Username or email already exists")
		}
		return nil, "", persistence("Failed to register", err)
	}

	// 默认签发 token
	token, err := s.jwtService.IssueForUser(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return newUserView(user), token, nil
}

// Login 登录
func (s *UserService) Login(ctx context.Context, identifier, plainPassword string) (*UserView, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plainPassword == "" {
		return nil, "", validation("Identifier and password are required")
	}
	u, err := s.repo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if password.NeedsRehash(u.PasswordHash) {
		s.upgradeHash(ctx, u.ID, plainPassword)
	}
	token, err := s.jwtService.IssueForUser(u.ID, u.Username)
	if err != nil {
		return nil, "", err
	}
	return newUserView(u), token, nil
}

// upgradeHash 失败只记录日志，不影响本次登录
func (s *UserService) upgradeHash(ctx context.Context, userID uint, plainPassword string) {
	hash, err := password.Hash(plainPassword)
	if err == nil {
		err = s.repo.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		logger.Warn("升级密码哈希失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Profile 当前用户资料
func (s *UserService) Profile(ctx context.Context, userID uint) (*UserView, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return newUserView(u), nil
}

// Status 按用户名查询状态、统计与最近发言
func (s *UserService) Status(ctx context.Context, username string) (*UserStatusView, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentMessages(ctx, u.ID, recentActivity)
	if err != nil {
		return nil, err
	}

	activity := make([]ActivityItem, 0, len(recent))
	for _, m := range recent {
		activity = append(activity, ActivityItem{Content: m.Content, Timestamp: formatTime(m.CreatedAt)})
	}

	return &UserStatusView{
		Username:     u.Username,
		IsOnline:     u.IsOnline,
		CustomStatus: u.CustomStatus,
		StatusEmoji:  u.StatusEmoji,
		LastSeen:     formatTimePtr(u.LastSeen),
		Role:         u.Role,
		JoinDate:     formatTime(u.JoinDate),
		Bio:          u.Bio,
		Stats: UserStats{
			TotalMessages:       stats.TotalMessages,
			ReactionsGiven:      stats.ReactionsGiven,
			ChannelsJoined:      stats.ChannelsJoined,
			ThreadsParticipated: stats.ThreadsParticipated,
		},
		RecentActivity: activity,
	}, nil
}

// UpdateCustomStatus 更新自定义状态并全局广播
func (s *UserService) UpdateCustomStatus(ctx context.Context, userID uint, status, emoji string) error {
	status = strings.TrimSpace(status)
	emoji = strings.TrimSpace(emoji)
	if utf8.RuneCountInString(status) > maxCustomStatus {
		return validation("Status is too long")
	}
	if utf8.RuneCountInString(emoji) > maxStatusEmoji {
		return validation("Status emoji is too long")
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.repo.UpdateCustomStatus(ctx, userID, status, emoji); err != nil {
		logger.Error("更新自定义状态失败", zap.Uint("user_id", userID), zap.Error(err))
		return persistence("Failed to update status", err)
	}

	s.hub.BroadcastGlobal(websocket.Event{
		Type: EventUserStatusUpdated,
		Data: map[string]interface{}{
			"user_id":       userID,
			"username":      u.Username,
			"custom_status": status,
			"status_emoji":  emoji,
		},
	})
	return nil
}
