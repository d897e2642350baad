package websocket

import (
	"encoding/json"
	"strconv"
)

// Event 出站事件，Seq 为进程内递增序号，客户端可据此发现丢失
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Seq  int64       `json:"seq,omitempty"`
}

// Inbound 入站事件信封，Data 由路由层按 Type 解码
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Broadcaster 房间广播能力，业务层只依赖该接口
type Broadcaster interface {
	// Broadcast 投递给加入 room 的所有连接
	Broadcast(room string, event Event)
	// BroadcastGlobal 投递给全部连接
	BroadcastGlobal(event Event)
}

// ChannelRoom 频道房间键
func ChannelRoom(channelID uint) string {
	return "channel:" + strconv.FormatUint(uint64(channelID), 10)
}

// UserRoom 用户私有房间键，用户的每个连接都会自动加入
func UserRoom(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}
