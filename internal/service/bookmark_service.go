package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"teamflow/internal/model"
	"teamflow/internal/repository"
	"teamflow/pkg/db"
	"teamflow/pkg/keylock"
	"teamflow/pkg/logger"
	"teamflow/pkg/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBookmarkNote = 256

// BookmarkResult 收藏切换结果
type BookmarkResult struct {
	MessageID  uint   `json:"message_id"`
	Bookmarked bool   `json:"bookmarked"`
	Note       string `json:"note"`
}

// BookmarkView 收藏列表项
type BookmarkView struct {
	ID        uint         `json:"id"`
	Note      string       `json:"note"`
	CreatedAt string       `json:"created_at"`
	Channel   string       `json:"channel"`
	Message   *MessageView `json:"message"`
}

// BookmarkService 收藏
type BookmarkService struct {
	db        *gorm.DB
	messages  *repository.MessageRepository
	bookmarks *repository.BookmarkRepository
	hub       websocket.Broadcaster
	locks     *keylock.KeyLock
}

func NewBookmarkService(orm *gorm.DB, hub websocket.Broadcaster, locks *keylock.KeyLock) *BookmarkService {
	return &BookmarkService{
		db:        orm,
		messages:  repository.NewMessageRepository(orm),
		bookmarks: repository.NewBookmarkRepository(orm),
		hub:       hub,
		locks:     locks,
	}
}

// Toggle 切换收藏，结果只推送给操作用户自己的房间
func (s *BookmarkService) Toggle(ctx context.Context, userID, messageID uint, note string) (*BookmarkResult, error) {
	if utf8.RuneCountInString(note) > maxBookmarkNote {
		return nil, validation("Bookmark note is too long")
	}

	unlock := s.locks.Lock(fmt.Sprintf("bookmark:%d:%d", userID, messageID))
	defer unlock()

	result := &BookmarkResult{MessageID: messageID}
	err := db.WithTx(s.db, func(tx *gorm.DB) error {
		if _, err := s.messages.WithTx(tx).GetByID(ctx, messageID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}

		repo := s.bookmarks.WithTx(tx)
		if _, err := repo.Find(ctx, userID, messageID); err == nil {
			_, err = repo.Delete(ctx, userID, messageID)
			return err
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		err := repo.Create(ctx, &model.UserBookmark{UserID: userID, MessageID: messageID, Note: note})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			_, err = repo.Delete(ctx, userID, messageID)
			return err
		}
		if err != nil {
			return err
		}
		result.Bookmarked = true
		result.Note = note
		return nil
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		logger.Error("切换收藏失败", zap.Uint("message_id", messageID), zap.Uint("user_id", userID), zap.Error(err))
		return nil, persistence("Failed to update bookmark", err)
	}

	s.hub.Broadcast(websocket.UserRoom(userID), websocket.Event{Type: EventMessageBookmarked, Data: result})
	return result, nil
}

// List 用户的收藏
func (s *BookmarkService) List(ctx context.Context, userID uint) ([]*BookmarkView, error) {
	bookmarks, err := s.bookmarks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*BookmarkView, 0, len(bookmarks))
	for _, b := range bookmarks {
		v := &BookmarkView{
			ID:        b.ID,
			Note:      b.Note,
			CreatedAt: formatTime(b.CreatedAt),
		}
		if b.Message != nil {
			v.Message = newMessageView(b.Message)
			if b.Message.Channel != nil {
				v.Channel = b.Message.Channel.Name
			}
		}
		views = append(views, v)
	}
	return views, nil
}

