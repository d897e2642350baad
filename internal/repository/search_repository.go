package repository

import (
	"context"
	"strings"
	"time"

	"teamflow/internal/model"

	"gorm.io/gorm"
)

// SearchFilter 消息搜索条件
type SearchFilter struct {
	Keyword        string
	Username       string
	ChannelID      *uint
	DateFrom       *time.Time
	DateTo         *time.Time
	IncludeThreads bool
	Limit          int
}

// SearchRepository 消息搜索
type SearchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '!' 使用
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Search 按关键字（大小写不敏感子串）搜索消息，可选包含话题回复内容
// 结果按时间倒序，最多 Limit 条
func (r *SearchRepository) Search(ctx context.Context, f SearchFilter) ([]*model.Message, error) {
	pattern := containsPattern(f.Keyword)

	q := r.db.WithContext(ctx).
		Preload("User").
		Preload("Channel")

	if f.IncludeThreads {
		q = q.Where("(LOWER(content) LIKE ? ESCAPE '!' OR id IN (SELECT message_id FROM thread WHERE LOWER(content) LIKE ? ESCAPE '!'))",
			pattern, pattern)
	} else {
		q = q.Where("LOWER(content) LIKE ? ESCAPE '!'", pattern)
	}

	if f.Username != "" {
		q = q.Where("user_id IN (SELECT id FROM user WHERE LOWER(username) LIKE ? ESCAPE '!')", containsPattern(f.Username))
	}
	if f.ChannelID != nil {
		q = q.Where("channel_id = ?", *f.ChannelID)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var messages []*model.Message
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error
	return messages, err
}
