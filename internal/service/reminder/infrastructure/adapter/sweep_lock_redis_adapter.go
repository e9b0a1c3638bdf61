package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/pkg/redis"
)

const (
	releaseLockScriptName = "release_sweep_lock"
	defaultSweepLockKey   = "returnremind:sweep:lock"
)

// RedisSweepLock 是 port.SweepLock 的 Redis 实现：SET NX PX 加锁，Lua 脚本比较 token 后删除。
type RedisSweepLock struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

// NewRedisSweepLock 创建锁并加载释放脚本。ttl 应大于一次扫描的耗时。
func NewRedisSweepLock(redisClient *redis.Client, key string, ttl time.Duration) (*RedisSweepLock, error) {
	if key == "" {
		key = defaultSweepLockKey
	}
	if err := redisClient.LoadScriptFromContent(releaseLockScriptName, releaseLockScript); err != nil {
		return nil, errors.Wrap(err, "failed to load sweep lock release script")
	}
	return &RedisSweepLock{redisClient: redisClient, key: key, ttl: ttl}, nil
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.redisClient.GetClient().SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "redis sweep lock")
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// 释放时不使用已取消的扫描 ctx
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := l.redisClient.RunScript(rctx, releaseLockScriptName, []string{l.key}, token); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", l.key).Msg("failed to release sweep lock, it will expire")
		}
	}
	return release, true, nil
}

// KEYS[1]: 锁的 key
// ARGV[1]: 加锁时写入的 token，只删除自己持有的锁
var releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`
