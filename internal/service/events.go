package service

// 出站事件名
const (
	EventStatusChange      = "status_change"
	EventCurrentUser       = "current_user"
	EventChannelList       = "channel_list"
	EventStatus            = "status"
	EventMessage           = "message"
	EventThreadMessage     = "thread_message"
	EventThreadHistory     = "thread_history"
	EventReactionAdded     = "reaction_added"
	EventReactionStats     = "reaction_stats"
	EventMessagePinned     = "message_pinned"
	EventMessageBookmarked = "message_bookmarked"
	EventMessageDeleted    = "message_deleted"
	EventChannelCreated    = "channel_created"
	EventUserStatus        = "user_status"
	EventUserStatusUpdated = "user_status_updated"
	EventSearchResults     = "search_results"
	EventChannelInfo       = "channel_info"
	EventHeartbeatAck      = "heartbeat_ack"
	EventError             = "error"
)
