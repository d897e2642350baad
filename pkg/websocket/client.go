package websocket

import (
	"sync"
	"time"

	"teamflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client 代表一个WebSocket连接
// 同一用户可以持有多个 Client（多标签页、多设备）

type Client struct {
	ID       string
	UserID   uint
	Username string

	conn *websocket.Conn
	send chan []byte

	// rooms 由 Manager 的锁保护
	rooms map[string]struct{}

	closeOnce sync.Once
}

// NewClient 创建连接对象，conn 为空时仅用于测试
func NewClient(conn *websocket.Conn, userID uint, username string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, buffer),
		rooms:    make(map[string]struct{}),
	}
}

// Outbox 发送队列的只读视图
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// writePump 单协程写出：保证同一连接的事件按入队顺序送达，并定时发送ping
func (c *Client) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// 发送通道已关闭（注销或慢连接）
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("WebSocket写入失败", zap.String("session", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// readPump 顺序读取入站帧并交给 handle，返回即表示连接结束
func (c *Client) readPump(maxSize int64, readTimeout time.Duration, handle func([]byte)) {
	if maxSize > 0 {
		c.conn.SetReadLimit(maxSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket异常断开", zap.String("session", c.ID), zap.Uint("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		handle(payload)
	}
}
