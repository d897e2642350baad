package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"teamflow/internal/model"
	"teamflow/internal/repository"
	"teamflow/pkg/db"
	"teamflow/pkg/keylock"
	"teamflow/pkg/logger"
	"teamflow/pkg/metrics"
	"teamflow/pkg/ratelimit"
	"teamflow/pkg/websocket"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileSink 上传文件存储
type FileSink interface {
	Save(originalName string, r io.Reader) (ref string, err error)
	Remove(ref string) error
}

// Attachment 已落盘的附件
type Attachment struct {
	Name            string
	Ref             string
	Type            string
	EmbeddingStatus string
}

// PostMessageInput 发送消息参数
type PostMessageInput struct {
	ChannelID  uint
	UserID     uint
	Content    string
	ParentID   *uint
	Attachment *Attachment

	admitted bool
}

// PinView 置顶状态变化
type PinView struct {
	MessageID uint    `json:"message_id"`
	ChannelID uint    `json:"channel_id"`
	IsPinned  bool    `json:"is_pinned"`
	PinnedBy  *string `json:"pinned_by"`
	PinnedAt  *string `json:"pinned_at"`
}

// MessageService 消息服务
type MessageService struct {
	db       *gorm.DB
	messages *repository.MessageRepository
	channels *repository.ChannelRepository
	views    *viewAssembler
	hub      websocket.Broadcaster
	limiter  *ratelimit.Pool
	locks    *keylock.KeyLock
	files    FileSink
}

// NewMessageService 创建MessageService实例；files 为空时删除消息不清理附件
func NewMessageService(
	orm *gorm.DB,
	hub websocket.Broadcaster,
	limiter *ratelimit.Pool,
	locks *keylock.KeyLock,
	files FileSink,
) *MessageService {
	messages := repository.NewMessageRepository(orm)
	return &MessageService{
		db:       orm,
		messages: messages,
		channels: repository.NewChannelRepository(orm),
		views: &viewAssembler{
			messages:  messages,
			threads:   repository.NewThreadRepository(orm),
			reactions: repository.NewReactionRepository(orm),
		},
		hub:     hub,
		limiter: limiter,
		locks:   locks,
		files:   files,
	}
}

// Precheck 附件落盘与入库前先做限流、频道与父消息校验；通过后 Post 不再重复扣减限流
func (s *MessageService) Precheck(ctx context.Context, in *PostMessageInput) error {
	if s.limiter != nil && !s.limiter.Allow(in.UserID) {
		return ErrRateLimited
	}
	in.admitted = true
	return s.checkTarget(ctx, s.channels, s.messages, in)
}

// checkTarget 频道必须存在；父消息须在同一频道且本身不是回复
func (s *MessageService) checkTarget(
	ctx context.Context,
	channels *repository.ChannelRepository,
	messages *repository.MessageRepository,
	in *PostMessageInput,
) error {
	if _, err := channels.GetByID(ctx, in.ChannelID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChannelNotFound
		}
		return err
	}
	if in.ParentID == nil {
		return nil
	}
	parent, err := messages.GetByID(ctx, *in.ParentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if parent.ChannelID != in.ChannelID {
		return validation("Parent message belongs to another channel")
	}
	if parent.ParentID != nil {
		return validation("Cannot reply to a reply")
	}
	return nil
}

// Post 发送消息：校验、事务落库，成功后仅广播到频道房间
func (s *MessageService) Post(ctx context.Context, in PostMessageInput) (*MessageView, error) {
	if strings.TrimSpace(in.Content) == "" && in.Attachment == nil {
		return nil, validation("Message content cannot be empty")
	}
	if !in.admitted && s.limiter != nil && !s.limiter.Allow(in.UserID) {
		return nil, ErrRateLimited
	}

	msg := &model.Message{
		ChannelID: in.ChannelID,
		UserID:    in.UserID,
		Content:   in.Content,
		ParentID:  in.ParentID,
	}
	if a := in.Attachment; a != nil {
		msg.FileName = a.Name
		msg.FilePath = a.Ref
		msg.FileType = a.Type
		msg.EmbeddingStatus = a.EmbeddingStatus
	}

	err := db.WithTx(s.db, func(tx *gorm.DB) error {
		if err := s.checkTarget(ctx, s.channels.WithTx(tx), s.messages.WithTx(tx), &in); err != nil {
			return err
		}

		author, err := repository.NewUserRepository(tx).GetByID(ctx, in.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := s.messages.WithTx(tx).Create(ctx, msg); err != nil {
			return err
		}
		msg.User = author
		return nil
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		logger.Error("消息保存失败", zap.Uint("channel_id", in.ChannelID), zap.Uint("user_id", in.UserID), zap.Error(err))
		return nil, persistence("Failed to send message", err)
	}

	view := newMessageView(msg)
	s.hub.Broadcast(websocket.ChannelRoom(in.ChannelID), websocket.Event{Type: EventMessage, Data: view})
	metrics.MessagesPosted.Inc()
	return view, nil
}

// History 频道最近的消息（时间正序），含回应、话题与回复
func (s *MessageService) History(ctx context.Context, channelID uint, limit int) ([]*MessageView, error) {
	if _, err := s.channels.GetByID(ctx, channelID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	msgs, err := s.messages.ListRecent(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	return s.views.assemble(ctx, msgs, true)
}

// Get 单条消息的完整表示
func (s *MessageService) Get(ctx context.Context, id uint) (*MessageView, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	views, err := s.views.assemble(ctx, []*model.Message{msg}, true)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Delete 仅作者可删除；级联删除在一个事务内完成，附件文件尽力清理
func (s *MessageService) Delete(ctx context.Context, userID, messageID uint) error {
	var (
		channelID uint
		removed   []*model.Message
	)
	err := db.WithTx(s.db, func(tx *gorm.DB) error {
		repo := s.messages.WithTx(tx)
		msg, err := repo.GetForUpdate(ctx, messageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if msg.UserID != userID {
			return forbidden("You can only delete your own messages")
		}
		channelID = msg.ChannelID
		removed, err = repo.DeleteCascade(ctx, messageID)
		return err
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		logger.Error("删除消息失败", zap.Uint("message_id", messageID), zap.Error(err))
		return persistence("Failed to delete message", err)
	}

	if s.files != nil {
		for _, m := range removed {
			if !m.HasAttachment() {
				continue
			}
			if err := s.files.Remove(m.FilePath); err != nil {
				logger.Warn("删除附件文件失败", zap.String("ref", m.FilePath), zap.Error(err))
			}
		}
	}

	s.hub.Broadcast(websocket.ChannelRoom(channelID), websocket.Event{
		Type: EventMessageDeleted,
		Data: map[string]interface{}{"message_id": messageID, "channel_id": channelID},
	})
	return nil
}

// TogglePin 切换置顶状态，任何登录用户都可操作
func (s *MessageService) TogglePin(ctx context.Context, actorID, messageID uint) (*PinView, error) {
	unlock := s.locks.Lock("pin:" + strconv.FormatUint(uint64(messageID), 10))
	defer unlock()

	view := &PinView{MessageID: messageID}
	err := db.WithTx(s.db, func(tx *gorm.DB) error {
		repo := s.messages.WithTx(tx)
		msg, err := repo.GetForUpdate(ctx, messageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		view.ChannelID = msg.ChannelID
		view.IsPinned = !msg.IsPinned

		if !view.IsPinned {
			return repo.SetPinned(ctx, messageID, false, nil, nil)
		}

		actor, err := repository.NewUserRepository(tx).GetByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		now := time.Now().UTC()
		view.PinnedBy = &actor.Username
		view.PinnedAt = formatTimePtr(&now)
		return repo.SetPinned(ctx, messageID, true, &actorID, &now)
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		logger.Error("切换置顶失败", zap.Uint("message_id", messageID), zap.Error(err))
		return nil, persistence("Failed to update pin", err)
	}

	s.hub.Broadcast(websocket.ChannelRoom(view.ChannelID), websocket.Event{Type: EventMessagePinned, Data: view})
	return view, nil
}

// ListPinned 频道置顶消息
func (s *MessageService) ListPinned(ctx context.Context, channelID uint) ([]*MessageView, error) {
	msgs, err := s.messages.ListPinned(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return s.views.assemble(ctx, msgs, false)
}

// ListFiles 带附件的消息
func (s *MessageService) ListFiles(ctx context.Context, limit int) ([]*MessageView, error) {
	msgs, err := s.messages.ListAttachments(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.views.assemble(ctx, msgs, false)
}
