package port

import "context"

// SweepLock 是跨实例的扫描互斥锁。
// 它只用于减少多实例同时扫描时的无效竞争，正确性由存储层的条件更新保证。
type SweepLock interface {
	// TryAcquire 非阻塞地尝试加锁，成功时返回释放函数。
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}
