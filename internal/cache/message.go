package cache

import (
	"context"
	"fmt"
	"time"

	"Pointage/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	processedTTL           = 48 * time.Hour
)

// TryMarkMessageProcessing 使用 SETNX 原子标记消息处理中
// 返回 false 表示重复消息或其他消费者正在处理
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	ok, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// UnmarkMessageProcessing 处理失败时清除标记，允许重投递后重试
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 处理成功后标记完成并刷新 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// MessageGuard 将消息幂等标记包装为对象，供消费者注入
type MessageGuard struct {
	TTL time.Duration
}

func (g MessageGuard) TryMark(ctx context.Context, messageID string) (bool, error) {
	return TryMarkMessageProcessing(ctx, messageID, g.TTL)
}

func (g MessageGuard) MarkDone(ctx context.Context, messageID string) error {
	return MarkMessageProcessed(ctx, messageID, g.TTL)
}

func (g MessageGuard) Unmark(ctx context.Context, messageID string) error {
	return UnmarkMessageProcessing(ctx, messageID)
}
