package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"teamflow/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]uint

func (s staticTokens) Identity(token string) (uint, string, error) {
	id, ok := s[token]
	if !ok {
		return 0, "", errors.New("invalid token")
	}
	return id, "user", nil
}

func queryOrProtocol(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return r.Header.Get("Sec-WebSocket-Protocol")
}

// echoDispatcher 连接时发送 hello，收到的帧原样回发
type echoDispatcher struct {
	manager      *Manager
	disconnected chan int
}

func (d *echoDispatcher) OnConnect(c *Client) {
	d.manager.SendTo(c, Event{Type: "hello", Data: c.UserID})
}

func (d *echoDispatcher) OnDisconnect(_ *Client, remaining int) {
	d.disconnected <- remaining
}

func (d *echoDispatcher) Dispatch(c *Client, payload []byte) {
	d.manager.SendTo(c, Event{Type: "echo", Data: string(payload)})
}

func newTestServer(t *testing.T) (*httptest.Server, *Manager, *echoDispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := NewManager()
	dispatcher := &echoDispatcher{manager: manager, disconnected: make(chan int, 4)}
	h := NewHandler(manager, staticTokens{"good": 42}, queryOrProtocol, dispatcher, config.WebSocketConfig{
		PingInterval:   time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   time.Second,
		SendBuffer:     16,
		MaxMessageSize: 1024,
	})

	router := gin.New()
	router.GET("/ws", h.Serve)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, manager, dispatcher
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestServeRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, query := range []string{"", "?token=bad"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, query), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestServeLifecycle(t *testing.T) {
	srv, manager, dispatcher := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=good"), nil)
	require.NoError(t, err)

	hello := readEvent(t, conn)
	assert.Equal(t, "hello", hello.Type)
	assert.EqualValues(t, 42, hello.Data)
	assert.Equal(t, 1, manager.SessionCount(42))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
	echo := readEvent(t, conn)
	assert.Equal(t, "echo", echo.Type)
	assert.Equal(t, `{"type":"heartbeat"}`, echo.Data)
	assert.Greater(t, echo.Seq, hello.Seq)

	require.NoError(t, conn.Close())
	select {
	case remaining := <-dispatcher.disconnected:
		assert.Equal(t, 0, remaining)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect was not reported")
	}
	assert.Equal(t, 0, manager.SessionCount(42))
}

func TestServeAcceptsSubprotocolToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	dialer := websocket.Dialer{Subprotocols: []string{"good"}}
	conn, resp, err := dialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "good", resp.Header.Get("Sec-WebSocket-Protocol"))
	assert.Equal(t, "hello", readEvent(t, conn).Type)
}
