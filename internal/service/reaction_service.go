package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const reactionStatsLimit = 10

// ReactionInput 表情回应参数
type ReactionInput struct {
	TargetID uint
	IsThread bool
	Emoji    string
	UserID   uint
	Username string
}

// ReactionResult 回应切换结果；ChannelID 为空表示无法解析频道，未广播
type ReactionResult struct {
	MessageID uint                    `json:"message_id"`
	TargetID  uint                    `json:"target_id"`
	Emoji     string                  `json:"emoji"`
	UserID    uint                    `json:"user_id"`
	User      string                  `json:"user"`
	Username  string                  `json:"username"`
	IsThread  bool                    `json:"is_thread"`
	Added     bool                    `json:"added"`
	ChannelID *uint                   `json:"-"`
	Stats     []repository.EmojiCount `json:"-"`
}

// ReactionService 表情回应
type ReactionService struct {
	db        *gorm.DB
	messages  *repository.MessageRepository
	threads   *repository.ThreadRepository
	reactions *repository.ReactionRepository
	hub       websocket.Broadcaster
	locks     *keylock.KeyLock
}

func NewReactionService(orm *gorm.DB, hub websocket.Broadcaster, locks *keylock.KeyLock) *ReactionService {
	return &ReactionService{
		db:        orm,
		messages:  repository.NewMessageRepository(orm),
		threads:   repository.NewThreadRepository(orm),
		reactions: repository.NewReactionRepository(orm),
		hub:       hub,
		locks:     locks,
	}
}

// Toggle 切换回应：同一 (目标, 用户, 表情) 的行数始终为 0 或 1
// 进程内按键串行，事务内读改写，唯一索引兜底跨进程竞争
func (s *ReactionService) Toggle(ctx context.Context, in ReactionInput) (*ReactionResult, error) {
	emoji := strings.TrimSpace(in.Emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > 32 {
		return nil, validation("Invalid emoji")
	}

	kind := model.TargetMessage
	if in.IsThread {
		kind = model.TargetThread
	}

	unlock := s.locks.Lock(fmt.Sprintf("reaction:%s:%d:%d:%s", kind, in.TargetID, in.UserID, emoji))
	defer unlock()

	result := &ReactionResult{
		MessageID: in.TargetID,
		TargetID:  in.TargetID,
		Emoji:     emoji,
		UserID:    in.UserID,
		User:      in.Username,
		Username:  in.Username,
		IsThread:  in.IsThread,
	}

	err := db.WithTx(s.db, func(tx *gorm.DB) error {
		channelID, messageID, err := s.resolveTarget(ctx, tx, kind, in.TargetID)
		if err != nil {
			return err
		}
		result.ChannelID = channelID
		if messageID != 0 {
			result.MessageID = messageID
		}

		repo := s.reactions.WithTx(tx)
		if _, err := repo.Find(ctx, kind, in.TargetID, in.UserID, emoji); err == nil {
			_, err = repo.Delete(ctx, kind, in.TargetID, in.UserID, emoji)
			return err
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		err = repo.Create(ctx, &model.Reaction{TargetKind: kind, TargetID: in.TargetID, UserID: in.UserID, Emoji: emoji})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 其他实例已插入同一回应，按切换语义删除
			_, err = repo.Delete(ctx, kind, in.TargetID, in.UserID, emoji)
			return err
		}
		if err != nil {
			return err
		}
		result.Added = true
		return nil
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		logger.Error("切换表情回应失败", zap.String("kind", kind), zap.Uint("target_id", in.TargetID), zap.Error(err))
		return nil, persistence("Failed to update reaction", err)
	}

	if result.ChannelID == nil {
		logger.Warn("回应目标无法解析到频道，跳过广播", zap.String("kind", kind), zap.Uint("target_id", in.TargetID))
		return result, nil
	}

	room := websocket.ChannelRoom(*result.ChannelID)
	s.hub.Broadcast(room, websocket.Event{Type: EventReactionAdded, Data: result})

	stats, err := s.reactions.ChannelStats(ctx, *result.ChannelID, reactionStatsLimit)
	if err != nil {
		logger.Warn("表情统计失败", zap.Uint("channel_id", *result.ChannelID), zap.Error(err))
		return result, nil
	}
	result.Stats = stats
	s.hub.Broadcast(room, websocket.Event{
		Type: EventReactionStats,
		Data: map[string]interface{}{"channel_id": *result.ChannelID, "stats": stats},
	})
	return result, nil
}

// resolveTarget 校验目标存在并解析频道；话题指向的顶层消息已不存在时返回空频道
func (s *ReactionService) resolveTarget(ctx context.Context, tx *gorm.DB, kind string, targetID uint) (*uint, uint, error) {
	messages := s.messages.WithTx(tx)

	if kind == model.TargetMessage {
		msg, err := messages.GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, 0, ErrMessageNotFound
			}
			return nil, 0, err
		}
		return &msg.ChannelID, msg.ID, nil
	}

	thread, err := s.threads.WithTx(tx).GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrThreadNotFound
		}
		return nil, 0, err
	}
	msg, err := messages.GetByID(ctx, thread.MessageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, thread.MessageID, nil
		}
		return nil, 0, err
	}
	return &msg.ChannelID, msg.ID, nil
}

