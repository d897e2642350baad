package websocket

import (
	"net/http"

	"teamflow/config"
	"teamflow/pkg/logger"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenValidator 从请求中取出令牌并校验身份
type TokenValidator interface {
	Identity(token string) (userID uint, username string, err error)
}

// TokenExtractor 从握手请求中取出令牌
type TokenExtractor func(r *http.Request) string

// Dispatcher 处理连接生命周期与入站事件
// Dispatch 在读协程中顺序调用，同一连接的事件按到达顺序处理
type Dispatcher interface {
	OnConnect(c *Client)
	OnDisconnect(c *Client, remaining int)
	Dispatch(c *Client, payload []byte)
}

// Handler WebSocket 接入
type Handler struct {
	manager    *Manager
	tokens     TokenValidator
	extract    TokenExtractor
	dispatcher Dispatcher
	cfg        config.WebSocketConfig
	upgrader   websocket.Upgrader
}

// NewHandler 创建接入处理器
func NewHandler(manager *Manager, tokens TokenValidator, extract TokenExtractor, dispatcher Dispatcher, cfg config.WebSocketConfig) *Handler {
	return &Handler{
		manager:    manager,
		tokens:     tokens,
		extract:    extract,
		dispatcher: dispatcher,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 跨域由 CORS 中间件负责
			},
		},
	}
}

// Serve Gin路由处理函数
func (h *Handler) Serve(c *gin.Context) {
	token := h.extract(c.Request)
	if token == "" {
		response.Unauthorized(c, "Authentication required")
		return
	}

	userID, username, err := h.tokens.Identity(token)
	if err != nil || userID == 0 {
		response.Unauthorized(c, "Invalid or expired token")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := NewClient(conn, userID, username, h.cfg.SendBuffer)
	h.manager.Register(client)
	logger.Info("WebSocket连接建立", zap.String("session", client.ID), zap.Uint("user_id", userID))

	go client.writePump(h.cfg.PingInterval, h.cfg.WriteTimeout)

	h.dispatcher.OnConnect(client)
	defer func() {
		remaining := h.manager.Unregister(client)
		h.dispatcher.OnDisconnect(client, remaining)
		logger.Info("WebSocket连接关闭", zap.String("session", client.ID), zap.Uint("user_id", userID))
	}()

	client.readPump(h.cfg.MaxMessageSize, h.cfg.ReadTimeout, func(payload []byte) {
		h.dispatcher.Dispatch(client, payload)
	})
}
