package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"returnremind/internal/pkg/redis"
)

const deliveryKeyPrefix = "returnremind:mailed:"

// RedisDeliveryLog 用 SET NX 记录已发送的提醒 ID，TTL 覆盖 Kafka 可能的重投窗口
type RedisDeliveryLog struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisDeliveryLog(redisClient *redis.Client, ttl time.Duration) *RedisDeliveryLog {
	return &RedisDeliveryLog{redisClient: redisClient, ttl: ttl}
}

func (l *RedisDeliveryLog) MarkOnce(ctx context.Context, notificationID string) (bool, error) {
	ok, err := l.redisClient.GetClient().SetNX(ctx, deliveryKeyPrefix+notificationID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "mark reminder delivered")
	}
	return ok, nil
}

func (l *RedisDeliveryLog) Forget(ctx context.Context, notificationID string) error {
	return errors.Wrap(l.redisClient.GetClient().Del(ctx, deliveryKeyPrefix+notificationID).Err(), "forget reminder delivery")
}
