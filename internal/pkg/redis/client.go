// internal/pkg/redis/client.go
package redis

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 的 UniversalClient，并按名字管理 Lua 脚本。
// 单个地址时是普通客户端，多个地址时自动使用集群客户端。
type Client struct {
	client  goredis.UniversalClient
	scripts map[string]*goredis.Script
	mu      sync.RWMutex
}

// NewClient 根据 "host1:port1,host2:port2" 格式的地址创建客户端并 PING 一次。
func NewClient(addrs string) (*Client, error) {
	var list []string
	for _, a := range strings.Split(addrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		return nil, errors.New("redis: no address configured")
	}
	c := NewFromUniversal(goredis.NewUniversalClient(&goredis.UniversalOptions{Addrs: list}))
	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis: ping failed")
	}
	return c, nil
}

// NewFromUniversal 包装一个已经存在的客户端（测试时注入 miniredis 连接）。
func NewFromUniversal(uc goredis.UniversalClient) *Client {
	return &Client{
		client:  uc,
		scripts: make(map[string]*goredis.Script),
	}
}

// LoadScriptFromContent 注册一个 Lua 脚本，之后通过名字调用。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.Errorf("redis: script %q is empty", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = goredis.NewScript(content)
	return nil
}

// RunScript 执行已注册的脚本，优先 EVALSHA，失败时回退 EVAL。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("redis: script %q not loaded", name)
	}
	res, err := script.Run(ctx, c.client, keys, args...).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	return res, err
}

// GetClient 暴露底层客户端，用于 pipeline 等高级操作。
func (c *Client) GetClient() goredis.UniversalClient {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}
