package repository

import (
	"context"

	"teamflow/internal/model"

	"gorm.io/gorm"
)

// ReactionRepository 表情回应数据仓储
type ReactionRepository struct {
	db *gorm.DB
}

// EmojiCount 频道内某表情的使用次数
type EmojiCount struct {
	Emoji string `json:"emoji" gorm:"column:emoji"`
	Count int64  `json:"count" gorm:"column:cnt"`
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func (r *ReactionRepository) WithTx(tx *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: tx}
}

// Find 查找某用户对目标的某个表情回应
func (r *ReactionRepository) Find(ctx context.Context, kind string, targetID, userID uint, emoji string) (*model.Reaction, error) {
	var reaction model.Reaction
	err := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ? AND user_id = ? AND emoji = ?", kind, targetID, userID, emoji).
		First(&reaction).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &reaction, nil
}

// Create 插入回应；唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *ReactionRepository) Create(ctx context.Context, reaction *model.Reaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

// Delete 按唯一键删除回应，返回删除行数
func (r *ReactionRepository) Delete(ctx context.Context, kind string, targetID, userID uint, emoji string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ? AND user_id = ? AND emoji = ?", kind, targetID, userID, emoji).
		Delete(&model.Reaction{})
	return result.RowsAffected, result.Error
}

// ListForTargets 批量获取某类目标的全部回应
func (r *ReactionRepository) ListForTargets(ctx context.Context, kind string, targetIDs []uint) ([]*model.Reaction, error) {
	var reactions []*model.Reaction
	if len(targetIDs) == 0 {
		return reactions, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("target_kind = ? AND target_id IN ?", kind, targetIDs).
		Order("id ASC").
		Find(&reactions).Error
	return reactions, err
}

// ChannelStats 频道内表情使用排行（消息回应与话题回应合并统计）
func (r *ReactionRepository) ChannelStats(ctx context.Context, channelID uint, limit int) ([]EmojiCount, error) {
	stats := make([]EmojiCount, 0, limit)
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.emoji AS emoji, COUNT(*) AS cnt
		FROM reaction r
		LEFT JOIN message m ON r.target_kind = ? AND m.id = r.target_id
		LEFT JOIN thread t ON r.target_kind = ? AND t.id = r.target_id
		LEFT JOIN message tm ON tm.id = t.message_id
		WHERE m.channel_id = ? OR tm.channel_id = ?
		GROUP BY r.emoji
		ORDER BY cnt DESC, r.emoji ASC
		LIMIT ?`,
		model.TargetMessage, model.TargetThread, channelID, channelID, limit,
	).Scan(&stats).Error
	return stats, err
}
