package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"teamflow/internal/model"
	"teamflow/internal/repository"
	"teamflow/pkg/logger"
	"teamflow/pkg/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxChannelName        = 64
	maxChannelDescription = 256

	defaultChannelDescription = "Default channel for general discussions"
)

// ChannelSummary channel_list 中的频道
type ChannelSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ChannelService 频道
type ChannelService struct {
	channels *repository.ChannelRepository
	users    *repository.UserRepository
	hub      websocket.Broadcaster
}

func NewChannelService(orm *gorm.DB, hub websocket.Broadcaster) *ChannelService {
	return &ChannelService{
		channels: repository.NewChannelRepository(orm),
		users:    repository.NewUserRepository(orm),
		hub:      hub,
	}
}

// EnsureDefault 启动时保证默认频道存在，重复调用不会新建
func (s *ChannelService) EnsureDefault(ctx context.Context, name string) (bool, error) {
	channel, created, err := s.channels.FirstOrCreateByName(ctx, name, defaultChannelDescription)
	if err != nil {
		return false, err
	}
	if created {
		logger.Info("已创建默认频道", zap.String("name", channel.Name), zap.Uint("id", channel.ID))
	}
	return created, nil
}

// Create 创建频道并全局广播
func (s *ChannelService) Create(ctx context.Context, creatorID uint, name, description string) (*ChannelView, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, validation("Channel name is required")
	}
	if utf8.RuneCountInString(name) > maxChannelName {
		return nil, validation("Channel name is too long")
	}
	if utf8.RuneCountInString(description) > maxChannelDescription {
		return nil, validation("Channel description is too long")
	}

	if _, err := s.channels.GetByName(ctx, name); err == nil {
		return nil, validation("Channel already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	channel := &model.Channel{
		Name:        name,
		Description: description,
		CreatedByID: &creator.ID,
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		logger.Error("创建频道失败", zap.String("name", name), zap.Error(err))
		return nil, persistence("Failed to create channel", err)
	}
	channel.CreatedBy = creator

	view := newChannelView(channel)
	s.hub.BroadcastGlobal(websocket.Event{Type: EventChannelCreated, Data: view})
	return view, nil
}

// Info 频道详情与消息统计
func (s *ChannelService) Info(ctx context.Context, channelID uint) (*ChannelInfoView, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	messages, replies, err := s.channels.CountMessages(ctx, channelID)
	if err != nil {
		return nil, err
	}

	view := &ChannelInfoView{
		ID:           channel.ID,
		Name:         channel.Name,
		Description:  channel.Description,
		CreatedAt:    formatTime(channel.CreatedAt),
		MessageCount: messages,
		ReplyCount:   replies,
	}
	if channel.CreatedBy != nil {
		view.Creator = &channel.CreatedBy.Username
	}
	return view, nil
}

// Get 单个频道
func (s *ChannelService) Get(ctx context.Context, channelID uint) (*ChannelView, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return newChannelView(channel), nil
}

// List 全部频道
func (s *ChannelService) List(ctx context.Context) ([]*ChannelView, error) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*ChannelView, 0, len(channels))
	for _, c := range channels {
		views = append(views, newChannelView(c))
	}
	return views, nil
}

// Summaries 连接建立时下发的频道快照
func (s *ChannelService) Summaries(ctx context.Context) ([]ChannelSummary, error) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelSummary, 0, len(channels))
	for _, c := range channels {
		out = append(out, ChannelSummary{ID: c.ID, Name: c.Name})
	}
	return out, nil
}
