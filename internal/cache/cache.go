// Package cache 提供键过期缓存。缓存只用于加速，不承担正确性，
// 调用方必须能在缓存不可用时降级。
package cache

import (
	"context"
	"time"
)

// Store 是举报去重等场景使用的最小缓存接口
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetEX(ctx context.Context, key string, ttl time.Duration) error
}
