package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"teamflow/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// NewClient 创建连接并 PING 一次，不可达时直接返回错误，由调用方决定是否降级
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:              cfg.Password,
		DB:                    cfg.DB,
		PoolSize:              10,
		MinIdleConns:          2,
		MaxRetries:            3,
		DialTimeout:           5 * time.Second,
		ReadTimeout:           3 * time.Second,
		WriteTimeout:          3 * time.Second,
		ContextTimeoutEnabled: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", client.Options().Addr, err)
	}
	return client, nil
}
