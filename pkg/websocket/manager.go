package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"teamflow/pkg/logger"
	"teamflow/pkg/metrics"

	"go.uber.org/zap"
)

// Manager 会话注册表与房间广播器
// clients: 会话ID -> 连接；users: 用户ID -> 会话集合；rooms: 房间键 -> 会话集合

type Manager struct {
	lock    sync.RWMutex
	clients map[string]*Client
	users   map[uint]map[string]*Client
	rooms   map[string]map[string]*Client

	// sendLock 保证序号分配与入队的原子性，使每个连接收到的 seq 单调递增
	sendLock sync.Mutex
	seq      atomic.Int64
}

// NewManager 创建管理器
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		users:   make(map[uint]map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register 注册连接并加入其用户私有房间
func (m *Manager) Register(c *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.clients[c.ID] = c
	if m.users[c.UserID] == nil {
		m.users[c.UserID] = make(map[string]*Client)
	}
	m.users[c.UserID][c.ID] = c
	m.joinLocked(c, UserRoom(c.UserID))

	metrics.Sessions.Set(float64(len(m.clients)))
}

// Unregister 注销连接、退出所有房间并关闭发送通道，可重复调用
// 返回该用户剩余的连接数
func (m *Manager) Unregister(c *Client) (remaining int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.clients[c.ID]; ok {
		delete(m.clients, c.ID)
		for room := range c.rooms {
			m.leaveLocked(c, room)
		}
		if sessions := m.users[c.UserID]; sessions != nil {
			delete(sessions, c.ID)
			if len(sessions) == 0 {
				delete(m.users, c.UserID)
			}
		}
		c.closeSend()
		metrics.Sessions.Set(float64(len(m.clients)))
	}
	return len(m.users[c.UserID])
}

// Join 将连接加入房间，返回是否为新加入
func (m *Manager) Join(c *Client, room string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.clients[c.ID]; !ok {
		return false
	}
	if _, ok := c.rooms[room]; ok {
		return false
	}
	m.joinLocked(c, room)
	return true
}

// Leave 将连接移出房间
func (m *Manager) Leave(c *Client, room string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.leaveLocked(c, room)
}

func (m *Manager) joinLocked(c *Client, room string) {
	members := m.rooms[room]
	if members == nil {
		members = make(map[string]*Client)
		m.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms[room] = struct{}{}
}

func (m *Manager) leaveLocked(c *Client, room string) {
	if members := m.rooms[room]; members != nil {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// InRoom 连接是否在房间内
func (m *Manager) InRoom(c *Client, room string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// RoomSize 房间内连接数
func (m *Manager) RoomSize(room string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.rooms[room])
}

// SessionCount 用户当前连接数
func (m *Manager) SessionCount(userID uint) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.users[userID])
}

// OnlineUserIDs 当前至少有一个连接的用户
func (m *Manager) OnlineUserIDs() []uint {
	m.lock.RLock()
	defer m.lock.RUnlock()
	ids := make([]uint, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast 投递给房间内所有连接
func (m *Manager) Broadcast(room string, event Event) {
	m.deliver(event, func() []*Client {
		members := m.rooms[room]
		targets := make([]*Client, 0, len(members))
		for _, c := range members {
			targets = append(targets, c)
		}
		return targets
	})
}

// BroadcastGlobal 投递给全部连接
func (m *Manager) BroadcastGlobal(event Event) {
	m.deliver(event, func() []*Client {
		targets := make([]*Client, 0, len(m.clients))
		for _, c := range m.clients {
			targets = append(targets, c)
		}
		return targets
	})
}

// SendTo 仅投递给指定连接
func (m *Manager) SendTo(c *Client, event Event) {
	m.deliver(event, func() []*Client {
		if _, ok := m.clients[c.ID]; !ok {
			return nil
		}
		return []*Client{c}
	})
}

// deliver 分配序号并非阻塞入队；缓冲已满的连接被注销而不是静默丢事件
func (m *Manager) deliver(event Event, targets func() []*Client) {
	var slow []*Client

	m.sendLock.Lock()
	m.lock.RLock()
	recipients := targets()
	if len(recipients) > 0 {
		event.Seq = m.seq.Add(1)
		payload, err := json.Marshal(event)
		if err != nil {
			m.lock.RUnlock()
			m.sendLock.Unlock()
			logger.Error("事件序列化失败", zap.String("type", event.Type), zap.Error(err))
			return
		}
		for _, c := range recipients {
			select {
			case c.send <- payload:
				metrics.EventsDelivered.Inc()
			default:
				slow = append(slow, c)
			}
		}
	}
	m.lock.RUnlock()
	m.sendLock.Unlock()

	for _, c := range slow {
		logger.Warn("发送缓冲已满，断开慢连接", zap.String("session", c.ID), zap.Uint("user_id", c.UserID))
		metrics.SlowClientDrops.Inc()
		m.Unregister(c)
	}
}

// Shutdown 关闭所有连接
func (m *Manager) Shutdown() {
	m.lock.RLock()
	all := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		all = append(all, c)
	}
	m.lock.RUnlock()

	for _, c := range all {
		m.Unregister(c)
	}
}
