package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 基于 Redis 的 Store 实现，多实例部署时共享去重状态
type Redis struct {
	rdb *redis.Client
}

// NewRedis 解析 redis:// 地址并创建客户端，不会立即建立连接
func NewRedis(url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return &Redis{rdb: redis.NewClient(opt)}, nil
}

// NewRedisFromClient 复用已有客户端
func NewRedisFromClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) SetEX(ctx context.Context, key string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, "1", ttl).Err()
}

// Ping 启动时检查连通性，失败只影响性能不影响正确性
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
