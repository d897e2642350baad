package repository

import (
	"context"

	"teamflow/internal/model"

	"gorm.io/gorm"
)

// ThreadRepository 话题回复数据仓储
type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) WithTx(tx *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: tx}
}

func (r *ThreadRepository) Create(ctx context.Context, thread *model.Thread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *ThreadRepository) GetByID(ctx context.Context, id uint) (*model.Thread, error) {
	var thread model.Thread
	if err := r.db.WithContext(ctx).Preload("User").First(&thread, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &thread, nil
}

// ListByMessages 批量获取若干顶层消息下的全部话题回复，按时间正序
func (r *ThreadRepository) ListByMessages(ctx context.Context, messageIDs []uint) ([]*model.Thread, error) {
	var threads []*model.Thread
	if len(messageIDs) == 0 {
		return threads, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC, id ASC").
		Find(&threads).Error
	return threads, err
}
