package repository

import (
	"context"

	"teamflow/internal/model"

	"gorm.io/gorm"
)

// BookmarkRepository 收藏数据仓储
type BookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

func (r *BookmarkRepository) WithTx(tx *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: tx}
}

func (r *BookmarkRepository) Find(ctx context.Context, userID, messageID uint) (*model.UserBookmark, error) {
	var bookmark model.UserBookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		First(&bookmark).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bookmark, nil
}

func (r *BookmarkRepository) Create(ctx context.Context, bookmark *model.UserBookmark) error {
	return r.db.WithContext(ctx).Create(bookmark).Error
}

func (r *BookmarkRepository) Delete(ctx context.Context, userID, messageID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&model.UserBookmark{})
	return result.RowsAffected, result.Error
}

// ListByUser 用户的全部收藏，附带消息与作者
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID uint) ([]*model.UserBookmark, error) {
	var bookmarks []*model.UserBookmark
	err := r.db.WithContext(ctx).
		Preload("Message").
		Preload("Message.User").
		Preload("Message.Channel").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&bookmarks).Error
	return bookmarks, err
}
