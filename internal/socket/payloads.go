package socket

// 入站事件名
const (
	EventJoin               = "join"
	EventLeave              = "leave"
	EventMessage            = "message"
	EventThreadReply        = "thread_reply"
	EventReaction           = "reaction"
	EventPinMessage         = "pin_message"
	EventBookmarkMessage    = "bookmark_message"
	EventCreateChannel      = "create_channel"
	EventGetUserStatus      = "get_user_status"
	EventUpdateCustomStatus = "update_custom_status"
	EventSearchMessages     = "search_messages"
	EventGetChannelInfo     = "get_channel_info"
	EventDeleteMessage      = "delete_message"
	EventFetchThreadHistory = "fetch_thread_history"
	EventHeartbeat          = "heartbeat"
)

// 每种入站事件对应一个封闭的载荷结构，未知字段在解码时拒绝

type roomPayload struct {
	Channel uint `json:"channel" validate:"required"`
}

type filePayload struct {
	Name string `json:"name" validate:"required,max=255"`
	Data string `json:"data" validate:"required"`
}

type messagePayload struct {
	Content   string       `json:"content" validate:"max=4000"`
	ChannelID uint         `json:"channel_id" validate:"required"`
	ParentID  *uint        `json:"parent_id" validate:"omitempty,min=1"`
	File      *filePayload `json:"file"`
}

type threadReplyPayload struct {
	ParentID    uint   `json:"parent_id" validate:"required"`
	Content     string `json:"content" validate:"required,max=4000"`
	RepliedToID *uint  `json:"replied_to_id" validate:"omitempty,min=1"`
}

type reactionPayload struct {
	MessageID uint   `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
	IsThread  bool   `json:"is_thread"`
}

type messageRefPayload struct {
	MessageID uint `json:"message_id" validate:"required"`
}

type bookmarkPayload struct {
	MessageID uint   `json:"message_id" validate:"required"`
	Note      string `json:"note" validate:"max=256"`
}

type createChannelPayload struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description" validate:"max=256"`
}

type userStatusPayload struct {
	Username string `json:"username" validate:"required,max=64"`
}

type customStatusPayload struct {
	Status string `json:"status" validate:"max=100"`
	Emoji  string `json:"emoji" validate:"max=32"`
}

type searchPayload struct {
	Keyword        string `json:"keyword" validate:"max=200"`
	Username       string `json:"username" validate:"max=64"`
	ChannelID      *uint  `json:"channel_id" validate:"omitempty,min=1"`
	DateFrom       string `json:"date_from"`
	DateTo         string `json:"date_to"`
	IncludeThreads *bool  `json:"include_threads"`
}

type channelRefPayload struct {
	ChannelID uint `json:"channel_id" validate:"required"`
}

type heartbeatPayload struct{}
