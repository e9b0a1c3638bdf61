package adapter

import (
	"context"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/service/reminder/domain"
)

// LogSender 只把提醒写入日志，用于没有配置 Kafka 的本地环境
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (LogSender) Send(ctx context.Context, n *domain.Notification) error {
	ev := domain.NewReminderEvent(n)
	logger.Ctx(ctx).Info().
		Str("notification", ev.NotificationID).
		Str("type", string(ev.Type)).
		Str("owner", ev.OwnerID).
		Str("item", ev.ItemName).
		Str("merchant", ev.MerchantName).
		Str("deadline", ev.ReturnDeadline).
		Msg("[MOCK] reminder delivered")
	return nil
}
