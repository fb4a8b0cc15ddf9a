// Package redis_limiter 基于Redis的限流原语
// 为登录接口提供固定窗口限流,为文档转换提供并发槽位控制
package redis_limiter

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConcurrencyLimiter 基于Redis的并发限制器
type ConcurrencyLimiter struct {
	client        *redis.Client
	maxConcurrent int
	keyPrefix     string
	ttl           time.Duration
}

// NewConcurrencyLimiter 创建并发限制器
func NewConcurrencyLimiter(client *redis.Client, maxConcurrent int, keyPrefix string, ttl time.Duration) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{
		client:        client,
		maxConcurrent: maxConcurrent,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
	}
}

// Acquire 获取并发槽位
func (rl *ConcurrencyLimiter) Acquire(ctx context.Context, key string) error {
	redisKey := rl.keyPrefix + key

	// 使用Lua脚本确保原子性操作:
	// 当前值小于上限时加1并续期,否则返回超限值表示失败
	script := redis.NewScript(
		`local current = redis.call('GET', KEYS[1])
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		if current >= tonumber(ARGV[1]) then
			return current + 1
		end

		local newCount = redis.call('INCR', KEYS[1])
		redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
		return newCount`,
	)

	result, err := script.Run(ctx, rl.client, []string{redisKey}, rl.maxConcurrent, int(rl.ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("执行Lua脚本失败: %w", err)
	}

	newCount := int(result.(int64))
	if newCount > rl.maxConcurrent {
		log.Printf("[ConcurrencyLimiter] %s 槽位已满, 当前: %d, 最大: %d", key, newCount-1, rl.maxConcurrent)
		return fmt.Errorf("并发限制已达到上限: %d", rl.maxConcurrent)
	}

	return nil
}

// Release 释放并发槽位
func (rl *ConcurrencyLimiter) Release(ctx context.Context, key string) {
	redisKey := rl.keyPrefix + key

	// 减少计数,归零时删除key,否则续期
	script := redis.NewScript(
		`local count = redis.call('DECR', KEYS[1])
		if tonumber(count) <= 0 then
			redis.call('DEL', KEYS[1])
			return 0
		else
			redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
			return count
		end`,
	)

	if _, err := script.Run(ctx, rl.client, []string{redisKey}, int(rl.ttl.Seconds())).Result(); err != nil {
		log.Printf("[ConcurrencyLimiter] 执行Lua脚本失败: %v", err)
	}
}

// GetCurrent 获取当前并发数
func (rl *ConcurrencyLimiter) GetCurrent(ctx context.Context, key string) (int, error) {
	redisKey := rl.keyPrefix + key
	current, err := rl.client.Get(ctx, redisKey).Int()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("获取当前并发数失败: %w", err)
	}
	if err == redis.Nil {
		return 0, nil
	}
	return current, nil
}

// WindowLimiter 固定窗口计数限流器
type WindowLimiter struct {
	client      *redis.Client
	maxAttempts int
	keyPrefix   string
	window      time.Duration
}

// NewWindowLimiter 创建固定窗口限流器
func NewWindowLimiter(client *redis.Client, maxAttempts int, keyPrefix string, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		keyPrefix:   keyPrefix,
		window:      window,
	}
}

// Allow 记录一次尝试并判断是否放行
// 第一次尝试创建带过期时间的计数器,窗口内计数超限则拒绝
func (wl *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := wl.keyPrefix + key

	script := redis.NewScript(
		`local count = redis.call('INCR', KEYS[1])
		if count == 1 then
			redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
		end
		return count`,
	)

	result, err := script.Run(ctx, wl.client, []string{redisKey}, int(wl.window.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("执行Lua脚本失败: %w", err)
	}

	count := int(result.(int64))
	if count > wl.maxAttempts {
		log.Printf("[WindowLimiter] %s 已超过窗口内尝试上限 %d", key, wl.maxAttempts)
		return false, nil
	}
	return true, nil
}

// Reset 清除计数(如登录成功后)
func (wl *WindowLimiter) Reset(ctx context.Context, key string) {
	if err := wl.client.Del(ctx, wl.keyPrefix+key).Err(); err != nil {
		log.Printf("[WindowLimiter] 清除计数失败: %v", err)
	}
}
