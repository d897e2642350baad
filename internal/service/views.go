package service

import (
	"time"

	"teamflow/internal/model"
)

// 对外统一使用 RFC 3339 UTC 时间
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func username(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

// ReactionView 单条表情回应
type ReactionView struct {
	Emoji  string `json:"emoji"`
	UserID uint   `json:"user_id"`
	User   string `json:"user"`
}

// FileView 附件描述
type FileView struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	Type            string `json:"type"`
	EmbeddingStatus string `json:"embedding_status"`
}

// MessageView 消息的标准表示，广播与历史回放共用
type MessageView struct {
	ID        uint           `json:"id"`
	ChannelID uint           `json:"channel_id"`
	Content   string         `json:"content"`
	User      string         `json:"user"`
	UserID    uint           `json:"user_id"`
	Timestamp string         `json:"timestamp"`
	IsPinned  bool           `json:"is_pinned"`
	PinnedBy  *string        `json:"pinned_by"`
	PinnedAt  *string        `json:"pinned_at"`
	Reactions []ReactionView `json:"reactions"`
	Threads   []*ThreadNode  `json:"threads"`
	Replies   []*MessageView `json:"replies"`
	File      *FileView      `json:"file"`
	ParentID  *uint          `json:"parent_id"`
}

// ThreadNode 话题回复树节点
type ThreadNode struct {
	ID               uint           `json:"id"`
	MessageID        uint           `json:"message_id"`
	Content          string         `json:"content"`
	User             string         `json:"user"`
	UserID           uint           `json:"user_id"`
	Timestamp        string         `json:"timestamp"`
	RepliedToID      *uint          `json:"replied_to_id"`
	RepliedToContent *string        `json:"replied_to_content"`
	Depth            int            `json:"depth"`
	Reactions        []ReactionView `json:"reactions"`
	Replies          []*ThreadNode  `json:"replies"`
}

// ChannelView 频道
type ChannelView struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatedBy   *string `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
}

// ChannelInfoView 频道详情
type ChannelInfoView struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Creator      *string `json:"creator"`
	CreatedAt    string  `json:"created_at"`
	MessageCount int64   `json:"message_count"`
	ReplyCount   int64   `json:"reply_count"`
}

// UserView 用户公开信息
type UserView struct {
	ID           uint    `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	IsOnline     bool    `json:"is_online"`
	LastSeen     *string `json:"last_seen"`
	Status       string  `json:"status"`
	CustomStatus string  `json:"custom_status"`
	StatusEmoji  string  `json:"status_emoji"`
	Role         string  `json:"role"`
	Bio          string  `json:"bio"`
	JoinDate     string  `json:"join_date"`
}

func newUserView(u *model.User) *UserView {
	return &UserView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		IsOnline:     u.IsOnline,
		LastSeen:     formatTimePtr(u.LastSeen),
		Status:       u.Status,
		CustomStatus: u.CustomStatus,
		StatusEmoji:  u.StatusEmoji,
		Role:         u.Role,
		Bio:          u.Bio,
		JoinDate:     formatTime(u.JoinDate),
	}
}

func newChannelView(c *model.Channel) *ChannelView {
	v := &ChannelView{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   formatTime(c.CreatedAt),
	}
	if c.CreatedBy != nil {
		name := c.CreatedBy.Username
		v.CreatedBy = &name
	}
	return v
}

func newFileView(m *model.Message) *FileView {
	if !m.HasAttachment() {
		return nil
	}
	return &FileView{
		Name:            m.FileName,
		Path:            "/uploads/" + m.FilePath,
		Type:            m.FileType,
		EmbeddingStatus: m.EmbeddingStatus,
	}
}

// newMessageView 构造不含回应/话题/回复的基础表示
func newMessageView(m *model.Message) *MessageView {
	v := &MessageView{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		User:      username(m.User),
		UserID:    m.UserID,
		Timestamp: formatTime(m.CreatedAt),
		IsPinned:  m.IsPinned,
		PinnedAt:  formatTimePtr(m.PinnedAt),
		Reactions: []ReactionView{},
		Threads:   []*ThreadNode{},
		Replies:   []*MessageView{},
		File:      newFileView(m),
		ParentID:  m.ParentID,
	}
	if m.IsPinned && m.PinnedBy != nil {
		name := m.PinnedBy.Username
		v.PinnedBy = &name
	}
	return v
}

func newReactionViews(reactions []*model.Reaction) []ReactionView {
	views := make([]ReactionView, 0, len(reactions))
	for _, r := range reactions {
		views = append(views, ReactionView{Emoji: r.Emoji, UserID: r.UserID, User: username(r.User)})
	}
	return views
}
