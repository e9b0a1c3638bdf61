package adapter

import (
	"context"
	"sync"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/pkg/zookeeper"
)

const sweepLockResource = "reminder-sweep"

// ZkSweepLock 是 port.SweepLock 的 ZooKeeper 实现，基于临时顺序节点。
// 持有者的会话断开时节点自动删除，锁随之释放。
type ZkSweepLock struct {
	mu   sync.Mutex
	lock *zookeeper.TryLock
}

func NewZkSweepLock(conn *zk.Conn) (*ZkSweepLock, error) {
	l, err := zookeeper.NewTryLock(conn, sweepLockResource)
	if err != nil {
		return nil, errors.Wrap(err, "create zookeeper sweep lock")
	}
	return &ZkSweepLock{lock: l}, nil
}

func (z *ZkSweepLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	z.mu.Lock()
	acquired, err := z.lock.TryAcquire()
	if err != nil || !acquired {
		z.mu.Unlock()
		return nil, false, err
	}

	release := func() {
		defer z.mu.Unlock()
		if err := z.lock.Unlock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to release zookeeper sweep lock")
		}
	}
	return release, true, nil
}
