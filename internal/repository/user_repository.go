package repository

import (
	"context"
	"time"

	"teamflow/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	orm *gorm.DB
}

// UserStats 用户活跃统计
type UserStats struct {
	TotalMessages       int64
	ReactionsGiven      int64
	ChannelsJoined      int64
	ThreadsParticipated int64
}

func NewUserRepository(orm *gorm.DB) *UserRepository {
	return &UserRepository{orm: orm}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.orm.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).Where("username = ? OR email = ?", identifier, identifier).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ExistsByUsernameOrEmail 注册前检查用户名或邮箱是否已被占用
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.orm.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// SetPresence 更新在线状态；下线时同时记录 last_seen
func (r *UserRepository) SetPresence(ctx context.Context, id uint, online bool, at time.Time) error {
	updates := map[string]interface{}{"is_online": online}
	if !online {
		updates["last_seen"] = at
	}
	return r.orm.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *UserRepository) UpdateCustomStatus(ctx context.Context, id uint, status, emoji string) error {
	return r.orm.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"custom_status": status, "status_emoji": emoji}).Error
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return r.orm.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// Stats 统计用户发言、回应、参与频道与话题数量
func (r *UserRepository) Stats(ctx context.Context, id uint) (*UserStats, error) {
	var stats UserStats
	orm := r.orm.WithContext(ctx)

	if err := orm.Model(&model.Message{}).Where("user_id = ?", id).Count(&stats.TotalMessages).Error; err != nil {
		return nil, err
	}
	if err := orm.Model(&model.Reaction{}).Where("user_id = ?", id).Count(&stats.ReactionsGiven).Error; err != nil {
		return nil, err
	}
	if err := orm.Model(&model.Message{}).Where("user_id = ?", id).Distinct("channel_id").Count(&stats.ChannelsJoined).Error; err != nil {
		return nil, err
	}
	if err := orm.Model(&model.Thread{}).Where("user_id = ?", id).Distinct("message_id").Count(&stats.ThreadsParticipated).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecentMessages 用户最近发送的消息，按时间倒序
func (r *UserRepository) RecentMessages(ctx context.Context, id uint, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.orm.WithContext(ctx).
		Where("user_id = ?", id).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
