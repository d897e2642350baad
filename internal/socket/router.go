// Package socket 将 WebSocket 入站事件分发给业务服务
package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"time"

	"teamflow/internal/service"
	"teamflow/pkg/logger"
	"teamflow/pkg/metrics"
	"teamflow/pkg/response"
	"teamflow/pkg/websocket"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Services 路由依赖的业务服务
type Services struct {
	Users     *service.UserService
	Presence  *service.PresenceService
	Channels  *service.ChannelService
	Messages  *service.MessageService
	Threads   *service.ThreadService
	Reactions *service.ReactionService
	Bookmarks *service.BookmarkService
	Search    *service.SearchService
	Files     *service.FileService
}

// Options 路由参数
type Options struct {
	HistoryLimit   int
	HandlerTimeout time.Duration
}

type handlerFunc func(ctx context.Context, c *websocket.Client, data json.RawMessage) error

// Router 实现 websocket.Dispatcher
// 事件在连接的读协程中顺序处理；单个事件的失败只以私有 error 事件通知发起方
type Router struct {
	manager  *websocket.Manager
	svc      Services
	opts     Options
	validate *validator.Validate
	handlers map[string]handlerFunc
}

// NewRouter 创建路由
func NewRouter(manager *websocket.Manager, svc Services, opts Options) *Router {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}

	v := validator.New()
	v.RegisterTagNameFunc(response.JSONFieldName)

	r := &Router{manager: manager, svc: svc, opts: opts, validate: v}
	r.handlers = map[string]handlerFunc{
		EventJoin:               r.handleJoin,
		EventLeave:              r.handleLeave,
		EventMessage:            r.handleMessage,
		EventThreadReply:        r.handleThreadReply,
		EventReaction:           r.handleReaction,
		EventPinMessage:         r.handlePin,
		EventBookmarkMessage:    r.handleBookmark,
		EventCreateChannel:      r.handleCreateChannel,
		EventGetUserStatus:      r.handleGetUserStatus,
		EventUpdateCustomStatus: r.handleUpdateCustomStatus,
		EventSearchMessages:     r.handleSearch,
		EventGetChannelInfo:     r.handleChannelInfo,
		EventDeleteMessage:      r.handleDeleteMessage,
		EventFetchThreadHistory: r.handleThreadHistory,
		EventHeartbeat:          r.handleHeartbeat,
	}
	return r
}

// OnConnect 标记在线，并私发 current_user 与 channel_list
func (r *Router) OnConnect(c *websocket.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.HandlerTimeout)
	defer cancel()

	if err := r.svc.Presence.Connected(ctx, c.UserID, c.Username); err != nil {
		logger.Error("设置在线状态失败", zap.Uint("user_id", c.UserID), zap.Error(err))
	}

	r.send(c, service.EventCurrentUser, map[string]interface{}{
		"user_id":  c.UserID,
		"username": c.Username,
	})

	channels, err := r.svc.Channels.Summaries(ctx)
	if err != nil {
		logger.Error("获取频道列表失败", zap.Error(err))
		channels = []service.ChannelSummary{}
	}
	r.send(c, service.EventChannelList, map[string]interface{}{"channels": channels})
}

// OnDisconnect 连接断开后更新在线状态；不依赖连接上下文，保证落库完成
func (r *Router) OnDisconnect(c *websocket.Client, remaining int) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.HandlerTimeout)
	defer cancel()

	if err := r.svc.Presence.Disconnected(ctx, c.UserID, c.Username, remaining); err != nil {
		logger.Error("设置离线状态失败", zap.Uint("user_id", c.UserID), zap.Error(err))
	}
}

// Dispatch 解码信封并调用对应处理函数
func (r *Router) Dispatch(c *websocket.Client, payload []byte) {
	var in websocket.Inbound
	if err := json.Unmarshal(payload, &in); err != nil || in.Type == "" {
		r.sendError(c, "Malformed event")
		return
	}

	h, ok := r.handlers[in.Type]
	if !ok {
		r.sendError(c, "Unknown event: "+in.Type)
		return
	}
	metrics.EventsReceived.WithLabelValues(in.Type).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.HandlerTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.HandlerDuration.WithLabelValues(in.Type).Observe(time.Since(start).Seconds())
		if p := recover(); p != nil {
			metrics.HandlerErrors.WithLabelValues(in.Type).Inc()
			logger.Error("事件处理panic",
				zap.String("type", in.Type),
				zap.String("session", c.ID),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			r.sendError(c, "Internal server error")
		}
	}()

	if err := h(ctx, c, in.Data); err != nil {
		r.fail(c, in.Type, err)
	}
}

func (r *Router) fail(c *websocket.Client, eventType string, err error) {
	metrics.HandlerErrors.WithLabelValues(eventType).Inc()

	fields := []zap.Field{
		zap.String("type", eventType),
		zap.String("session", c.ID),
		zap.Uint("user_id", c.UserID),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
		logger.Debug("事件被拒绝", fields...)
	default:
		logger.Error("事件处理失败", fields...)
	}
	r.sendError(c, service.PublicMessage(err))
}

func (r *Router) send(c *websocket.Client, eventType string, data interface{}) {
	r.manager.SendTo(c, websocket.Event{Type: eventType, Data: data})
}

func (r *Router) sendError(c *websocket.Client, msg string) {
	r.send(c, service.EventError, map[string]string{"message": msg})
}

// decodeInto 严格解码并校验载荷
func (r *Router) decodeInto(data json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return service.NewValidationError("Invalid payload: " + err.Error())
		}
	}
	if err := r.validate.Struct(dst); err != nil {
		return service.NewValidationError(response.DescribeBindError(err))
	}
	return nil
}
