package service

import (
	"context"
	"errors"
	"strings"

	"teamflow/internal/model"
	"teamflow/internal/repository"
	"teamflow/pkg/db"
	"teamflow/pkg/logger"
	"teamflow/pkg/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ThreadReplyInput 话题回复参数
type ThreadReplyInput struct {
	MessageID   uint
	UserID      uint
	Content     string
	RepliedToID *uint
}

// ThreadService 话题回复
type ThreadService struct {
	db       *gorm.DB
	messages *repository.MessageRepository
	threads  *repository.ThreadRepository
	views    *viewAssembler
	hub      websocket.Broadcaster
}

func NewThreadService(orm *gorm.DB, hub websocket.Broadcaster) *ThreadService {
	messages := repository.NewMessageRepository(orm)
	threads := repository.NewThreadRepository(orm)
	return &ThreadService{
		db:       orm,
		messages: messages,
		threads:  threads,
		views: &viewAssembler{
			messages:  messages,
			threads:   threads,
			reactions: repository.NewReactionRepository(orm),
		},
		hub: hub,
	}
}

// Reply 发表话题回复，被回复的话题必须属于同一顶层消息
func (s *ThreadService) Reply(ctx context.Context, in ThreadReplyInput) (*ThreadNode, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, validation("Reply content cannot be empty")
	}

	var channelID uint
	thread := &model.Thread{
		MessageID:   in.MessageID,
		RepliedToID: in.RepliedToID,
		UserID:      in.UserID,
		Content:     in.Content,
	}

	err := db.WithTx(s.db, func(tx *gorm.DB) error {
		top, err := s.messages.WithTx(tx).GetByID(ctx, in.MessageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		channelID = top.ChannelID

		if in.RepliedToID != nil {
			target, err := s.threads.WithTx(tx).GetByID(ctx, *in.RepliedToID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrInvalidThreadReference
				}
				return err
			}
			if target.MessageID != in.MessageID {
				return ErrInvalidThreadReference
			}
		}
		return s.threads.WithTx(tx).Create(ctx, thread)
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		logger.Error("话题回复保存失败", zap.Uint("message_id", in.MessageID), zap.Error(err))
		return nil, persistence("Failed to send reply", err)
	}

	// 重建整棵森林以得到一致的深度与被回复内容
	forest, err := s.views.threadForests(ctx, []uint{in.MessageID})
	if err != nil {
		return nil, err
	}
	node := findNode(forest[in.MessageID], thread.ID)
	if node == nil {
		return nil, persistence("Failed to send reply", errors.New("thread vanished after commit"))
	}

	s.hub.Broadcast(websocket.ChannelRoom(channelID), websocket.Event{Type: EventThreadMessage, Data: node})
	return node, nil
}

// History 顶层消息的完整回复森林
func (s *ThreadService) History(ctx context.Context, messageID uint) ([]*ThreadNode, error) {
	if _, err := s.messages.GetByID(ctx, messageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	forests, err := s.views.threadForests(ctx, []uint{messageID})
	if err != nil {
		return nil, err
	}
	if f, ok := forests[messageID]; ok {
		return f, nil
	}
	return []*ThreadNode{}, nil
}
