package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceData 在线状态数据
type PresenceData struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"` // online/offline
	LastSeen  time.Time `json:"last_seen"`
	Connected bool      `json:"connected"` // 是否有活跃连接
}

// 在线状态相关常量
const (
	PresenceKeyPrefix = "teamflow:presence:user:" // 用户在线状态key前缀
	OnlineUsersKey    = "teamflow:online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute           // 在线状态TTL（2倍心跳周期）
)

// PresenceStore 在线状态镜像，数据库仍是权威来源
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore 创建在线状态存储
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

func presenceKey(userID uint) string {
	return PresenceKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// SetUserPresence 设置用户在线状态
func (s *PresenceStore) SetUserPresence(ctx context.Context, userID uint, username string, online bool) error {
	status := "offline"
	if online {
		status = "online"
	}

	presence := PresenceData{
		UserID:    userID,
		Username:  username,
		Status:    status,
		LastSeen:  time.Now().UTC(),
		Connected: online,
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("序列化在线状态失败: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, presenceKey(userID), data, PresenceTTL)
	if online {
		pipe.SAdd(ctx, OnlineUsersKey, userID)
	} else {
		pipe.SRem(ctx, OnlineUsersKey, userID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}
	return nil
}

// GetUserPresence 获取用户在线状态
func (s *PresenceStore) GetUserPresence(ctx context.Context, userID uint) (*PresenceData, error) {
	data, err := s.client.Get(ctx, presenceKey(userID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("获取用户在线状态失败: %w", err)
	}

	var presence PresenceData
	if err := json.Unmarshal(data, &presence); err != nil {
		return nil, fmt.Errorf("反序列化在线状态失败: %w", err)
	}
	return &presence, nil
}

// GetOnlineUsers 获取所有在线用户ID列表
func (s *PresenceStore) GetOnlineUsers(ctx context.Context) ([]uint, error) {
	members, err := s.client.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取在线用户列表失败: %w", err)
	}

	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseUint(member, 10, 64); err == nil {
			userIDs = append(userIDs, uint(id))
		}
	}
	return userIDs, nil
}

// RefreshUserPresence 刷新用户在线状态（延长TTL）
func (s *PresenceStore) RefreshUserPresence(ctx context.Context, userID uint) error {
	ok, err := s.client.Expire(ctx, presenceKey(userID), PresenceTTL).Result()
	if err != nil {
		return fmt.Errorf("刷新用户在线状态失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("用户不在线")
	}
	return nil
}

// CleanExpiredPresence 清理状态key已过期但仍在在线集合中的用户（定期任务）
func (s *PresenceStore) CleanExpiredPresence(ctx context.Context) (int, error) {
	userIDs, err := s.GetOnlineUsers(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, userID := range userIDs {
		exists, err := s.client.Exists(ctx, presenceKey(userID)).Result()
		if err != nil {
			continue
		}
		if exists == 0 {
			if err := s.client.SRem(ctx, OnlineUsersKey, userID).Err(); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// HealthCheck 检查Redis健康状态
func (s *PresenceStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis连接异常: %w", err)
	}
	return nil
}
