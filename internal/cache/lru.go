package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item 包装缓存数据和过期时间
type item struct {
	Data      interface{}
	ExpiresAt time.Time
}

// LRU 进程内 TTL 缓存，容量满时淘汰最久未使用的键
type LRU struct {
	lruCache *lru.Cache[string, item]
	now      func() time.Time
}

// NewLRU 创建容量为 size 的本地缓存
func NewLRU(size int) (*LRU, error) {
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, err
	}
	return &LRU{lruCache: l, now: time.Now}, nil
}

// Set 设置缓存，TTL 为过期时间
func (c *LRU) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, item{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 nil
func (c *LRU) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete 删除指定缓存
func (c *LRU) Delete(key string) {
	c.lruCache.Remove(key)
}

// Purge 清空全部缓存
func (c *LRU) Purge() {
	c.lruCache.Purge()
}

func (c *LRU) Exists(_ context.Context, key string) (bool, error) {
	return c.Get(key) != nil, nil
}

func (c *LRU) SetEX(_ context.Context, key string, ttl time.Duration) error {
	c.Set(key, true, ttl)
	return nil
}
