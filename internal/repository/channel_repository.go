package repository

import (
	"context"

	"teamflow/internal/model"

	"gorm.io/gorm"
)

// ChannelRepository 频道数据仓储
type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *ChannelRepository) WithTx(tx *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: tx}
}

func (r *ChannelRepository) Create(ctx context.Context, channel *model.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *ChannelRepository) GetByID(ctx context.Context, id uint) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).Preload("CreatedBy").First(&channel, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &channel, nil
}

func (r *ChannelRepository) GetByName(ctx context.Context, name string) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error; err != nil {
		return nil, notFound(err)
	}
	return &channel, nil
}

// FirstOrCreateByName 按名称查找频道，不存在时创建；返回是否新建
func (r *ChannelRepository) FirstOrCreateByName(ctx context.Context, name, description string) (*model.Channel, bool, error) {
	channel := model.Channel{Name: name}
	result := r.db.WithContext(ctx).
		Where(model.Channel{Name: name}).
		Attrs(model.Channel{Description: description}).
		FirstOrCreate(&channel)
	if result.Error != nil {
		return nil, false, result.Error
	}
	// FirstOrCreate 仅在插入时 RowsAffected 为 1
	return &channel, result.RowsAffected == 1, nil
}

func (r *ChannelRepository) List(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	err := r.db.WithContext(ctx).Preload("CreatedBy").Order("id ASC").Find(&channels).Error
	return channels, err
}

// CountMessages 统计频道顶层消息数与回复数
func (r *ChannelRepository) CountMessages(ctx context.Context, channelID uint) (messages, replies int64, err error) {
	orm := r.db.WithContext(ctx).Model(&model.Message{})
	if err = orm.Where("channel_id = ? AND parent_id IS NULL", channelID).Count(&messages).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&model.Message{}).
		Where("channel_id = ? AND parent_id IS NOT NULL", channelID).
		Count(&replies).Error
	return messages, replies, err
}
