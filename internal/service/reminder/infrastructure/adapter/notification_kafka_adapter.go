package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"returnremind/internal/pkg/mq"
	"returnremind/internal/service/reminder/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationSender 接口，
// 把提醒作为 ReminderEvent 写入 Kafka，由 notification-service 负责发邮件。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

// NewNotificationKafkaAdapter 创建一个新的提醒生产者适配器。
func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// Send 以用户 ID 作为消息 key，同一用户的提醒保持顺序
func (a *NotificationKafkaAdapter) Send(ctx context.Context, n *domain.Notification) error {
	if n.Purchase == nil {
		return errors.Errorf("notification %s has no purchase attached", n.ID)
	}
	payload, err := json.Marshal(domain.NewReminderEvent(n))
	if err != nil {
		return errors.Wrap(err, "marshal reminder event")
	}
	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, a.writer, []byte(n.OwnerID), payload)
}

// Close 关闭底层的Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
