package repository

import (
	"context"
	"time"

	"teamflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

// Create 创建消息
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetByID 根据ID获取消息（含作者与置顶人）
func (r *MessageRepository) GetByID(ctx context.Context, id uint) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("PinnedBy").
		First(&message, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}

// GetForUpdate 事务内读取消息并加行锁（SQLite 忽略锁子句）
func (r *MessageRepository) GetForUpdate(ctx context.Context, id uint) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&message, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}

// ListRecent 频道最近 limit 条顶层消息，按时间正序返回
func (r *MessageRepository) ListRecent(ctx context.Context, channelID uint, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("PinnedBy").
		Where("channel_id = ? AND parent_id IS NULL", channelID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// 反转为时间正序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListReplies 批量获取若干消息的直接回复
func (r *MessageRepository) ListReplies(ctx context.Context, parentIDs []uint) ([]*model.Message, error) {
	var replies []*model.Message
	if len(parentIDs) == 0 {
		return replies, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("PinnedBy").
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	return replies, err
}

// ListPinned 频道内置顶消息，最近置顶的在前
func (r *MessageRepository) ListPinned(ctx context.Context, channelID uint) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("PinnedBy").
		Where("channel_id = ? AND is_pinned = ?", channelID, true).
		Order("pinned_at DESC").
		Find(&messages).Error
	return messages, err
}

// ListAttachments 带附件的消息，最新的在前
func (r *MessageRepository) ListAttachments(ctx context.Context, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Channel").
		Where("file_path <> ''").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// SetPinned 更新置顶状态；取消置顶时清空置顶时间与操作人
func (r *MessageRepository) SetPinned(ctx context.Context, id uint, pinned bool, by *uint, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_pinned":    pinned,
			"pinned_at":    at,
			"pinned_by_id": by,
		}).Error
}

// DeleteCascade 删除消息及其回复、话题、表情回应与收藏，必须在事务中调用
// 返回被删除的消息（用于清理附件）
func (r *MessageRepository) DeleteCascade(ctx context.Context, id uint) ([]*model.Message, error) {
	orm := r.db.WithContext(ctx)

	var doomed []*model.Message
	if err := orm.Where("id = ? OR parent_id = ?", id, id).Find(&doomed).Error; err != nil {
		return nil, err
	}
	if len(doomed) == 0 {
		return nil, ErrNotFound
	}
	ids := make([]uint, 0, len(doomed))
	for _, m := range doomed {
		ids = append(ids, m.ID)
	}

	var threadIDs []uint
	if err := orm.Model(&model.Thread{}).Where("message_id IN ?", ids).Pluck("id", &threadIDs).Error; err != nil {
		return nil, err
	}
	if len(threadIDs) > 0 {
		if err := orm.Where("target_kind = ? AND target_id IN ?", model.TargetThread, threadIDs).
			Delete(&model.Reaction{}).Error; err != nil {
			return nil, err
		}
		if err := orm.Where("id IN ?", threadIDs).Delete(&model.Thread{}).Error; err != nil {
			return nil, err
		}
	}
	if err := orm.Where("target_kind = ? AND target_id IN ?", model.TargetMessage, ids).
		Delete(&model.Reaction{}).Error; err != nil {
		return nil, err
	}
	if err := orm.Where("message_id IN ?", ids).Delete(&model.UserBookmark{}).Error; err != nil {
		return nil, err
	}
	if err := orm.Where("id IN ?", ids).Delete(&model.Message{}).Error; err != nil {
		return nil, err
	}
	return doomed, nil
}
