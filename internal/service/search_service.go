package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"teamflow/internal/repository"

	"gorm.io/gorm"
)

const (
	searchLimit    = 50
	highlightOpen  = `<span class="search-highlight">`
	highlightClose = `</span>`
	searchDateOnly = "2006-01-02"
)

// SearchQuery 搜索条件，日期支持 RFC 3339 或 YYYY-MM-DD（闭区间）
type SearchQuery struct {
	Keyword        string
	Username       string
	ChannelID      *uint
	DateFrom       string
	DateTo         string
	IncludeThreads *bool
}

// SearchResult 搜索结果，Content 已高亮
type SearchResult struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	User      string `json:"user"`
	UserID    uint   `json:"user_id"`
	Channel   string `json:"channel"`
	ChannelID uint   `json:"channel_id"`
	Timestamp string `json:"timestamp"`
}

// SearchService 消息搜索
type SearchService struct {
	repo *repository.SearchRepository
}

func NewSearchService(orm *gorm.DB) *SearchService {
	return &SearchService{repo: repository.NewSearchRepository(orm)}
}

// Search 关键字为空时返回 nil，调用方不发送结果
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	keyword := strings.TrimSpace(q.Keyword)
	if keyword == "" {
		return nil, nil
	}

	filter := repository.SearchFilter{
		Keyword:        keyword,
		Username:       strings.TrimSpace(q.Username),
		ChannelID:      q.ChannelID,
		IncludeThreads: q.IncludeThreads == nil || *q.IncludeThreads,
		Limit:          searchLimit,
	}

	var err error
	if filter.DateFrom, err = parseSearchDate(q.DateFrom, false); err != nil {
		return nil, err
	}
	if filter.DateTo, err = parseSearchDate(q.DateTo, true); err != nil {
		return nil, err
	}

	messages, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(messages))
	for _, m := range messages {
		r := SearchResult{
			ID:        m.ID,
			Content:   Highlight(m.Content, keyword),
			User:      username(m.User),
			UserID:    m.UserID,
			ChannelID: m.ChannelID,
			Timestamp: formatTime(m.CreatedAt),
		}
		if m.Channel != nil {
			r.Channel = m.Channel.Name
		}
		results = append(results, r)
	}
	return results, nil
}

// parseSearchDate 日期上界为纯日期时取当天最后时刻
func parseSearchDate(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(searchDateOnly, v)
	if err != nil {
		return nil, validation("Invalid date format")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Highlight 用高亮标签包裹 content 中所有大小写不敏感的 keyword，保留原文大小写
// 每次从上一个匹配的末尾继续扫描，匹配之间不重叠
func Highlight(content, keyword string) string {
	if keyword == "" {
		return content
	}
	klen := utf8.RuneCountInString(keyword)
	runes := []rune(content)

	var b strings.Builder
	i := 0
	for i+klen <= len(runes) {
		candidate := string(runes[i : i+klen])
		if strings.EqualFold(candidate, keyword) {
			b.WriteString(highlightOpen)
			b.WriteString(candidate)
			b.WriteString(highlightClose)
			i += klen
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	b.WriteString(string(runes[i:]))
	return b.String()
}
