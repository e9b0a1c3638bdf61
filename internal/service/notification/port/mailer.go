package port

import (
	"context"

	"returnremind/internal/service/notification/domain"
)

// Mailer 是邮件发送渠道
type Mailer interface {
	Send(ctx context.Context, mail domain.Email) error
}

// DeliveryLog 记录已经发送过的提醒，用于消息重复投递时去重
type DeliveryLog interface {
	// MarkOnce 首次标记返回 true，已经标记过返回 false
	MarkOnce(ctx context.Context, notificationID string) (bool, error)
	// Forget 撤销标记，发送失败时调用以便重试
	Forget(ctx context.Context, notificationID string) error
}
