package port

import (
	"context"

	"returnremind/internal/service/reminder/domain"
)

// NotificationSender 是提醒投递渠道的出站端口（Kafka、日志等）。
// 对核心而言是 fire-and-forget：投递失败由渠道自身负责重试和告警。
type NotificationSender interface {
	// Send 投递一条已被扫描器认领的提醒，n.Purchase 已填充。
	Send(ctx context.Context, n *domain.Notification) error
}
