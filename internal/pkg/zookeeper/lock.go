// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

const (
	lockRoot = "/distributed_locks" // 所有分布式锁的根节点
)

// Connect 建立到 ZooKeeper 集群的连接，servers 格式为 "host1:2181,host2:2181"
func Connect(servers string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, _, err := zk.Connect(strings.Split(servers, ","), sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrap(err, "connect zookeeper")
	}
	return conn, nil
}

// TryLock 是一个非阻塞的分布式锁：拿不到锁立即返回 false，而不是排队等待。
// 适合周期性任务，某一轮抢不到直接跳过即可。
type TryLock struct {
	conn     *zk.Conn
	path     string // 锁的路径，例如 /distributed_locks/reminder-sweep
	lockNode string // 成功获取锁后，自己创建的节点路径
}

// NewTryLock 创建锁实例，并确保锁的父节点存在
func NewTryLock(conn *zk.Conn, resourceID string) (*TryLock, error) {
	lockPath := lockRoot + "/" + resourceID
	for _, p := range []string{lockRoot, lockPath} {
		_, err := conn.Create(p, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return nil, errors.Wrapf(err, "failed to create lock node %s", p)
		}
	}
	return &TryLock{conn: conn, path: lockPath}, nil
}

// TryAcquire 创建临时顺序节点，若自己是最小节点则持有锁，否则删除节点并返回 false
func (l *TryLock) TryAcquire() (bool, error) {
	if l.lockNode != "" {
		return false, errors.New("lock already held by this instance")
	}
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return false, errors.Wrap(err, "failed to create sequential node")
	}

	children, _, err := l.conn.Children(l.path)
	if err != nil {
		_ = l.conn.Delete(nodePath, -1)
		return false, errors.Wrap(err, "failed to get children nodes")
	}
	// Protected 节点名带有 GUID 前缀，按序号部分排序
	sort.Slice(children, func(i, j int) bool { return sequence(children[i]) < sequence(children[j]) })

	myNodeName := strings.TrimPrefix(nodePath, l.path+"/")
	if len(children) > 0 && children[0] == myNodeName {
		l.lockNode = nodePath
		return true, nil
	}

	if err := l.conn.Delete(nodePath, -1); err != nil && err != zk.ErrNoNode {
		return false, errors.Wrap(err, "failed to delete contender node")
	}
	return false, nil
}

// Unlock 释放锁
func (l *TryLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return errors.Wrap(err, "failed to delete lock node")
	}
	l.lockNode = ""
	return nil
}

// sequence 取出节点名末尾 10 位的顺序号
func sequence(node string) string {
	if len(node) < 10 {
		return node
	}
	return node[len(node)-10:]
}
