package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/pkg/mq"
	"returnremind/internal/service/notification/application"
	reminder "returnremind/internal/service/reminder/domain"
)

const (
	serviceName = "notification-service"
	maxAttempts = 3
)

// MessageReader 是 kafka.Reader 中消费者用到的部分
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ReminderConsumerAdapter 是一个驱动适配器，它监听 Kafka 中的提醒事件并驱动应用服务。
type ReminderConsumerAdapter struct {
	reader     MessageReader
	appSvc     *application.NotificationService
	tracer     trace.Tracer
	retryDelay time.Duration
}

func NewReminderConsumerAdapter(reader MessageReader, appSvc *application.NotificationService) *ReminderConsumerAdapter {
	return &ReminderConsumerAdapter{
		reader:     reader,
		appSvc:     appSvc,
		tracer:     otel.Tracer(serviceName),
		retryDelay: 500 * time.Millisecond,
	}
}

// Run 持续消费直到 ctx 取消，每条消息处理完（成功、放弃或跳过）后提交 offset
func (a *ReminderConsumerAdapter) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Msg("reminder consumer started")
	for {
		// 使用 FetchMessage 而不是 ReadMessage，以便手动控制提交
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("reminder consumer shutting down")
				return ctx.Err()
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		a.processMessage(ctx, msg)
		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
		}
	}
}

// processMessage 反序列化消息并调用应用服务，投递失败时按退避重试
func (a *ReminderConsumerAdapter) processMessage(parentCtx context.Context, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)
	ctx, span := a.tracer.Start(ctx, "notification-service.ProcessReminder",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.kafka.message.key", string(msg.Key)),
		),
	)
	defer span.End()

	var event reminder.ReminderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 格式错误的消息重试也不会成功，直接提交跳过
		logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to unmarshal reminder event, skipping")
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad payload")
		return
	}

	for attempt := 1; ; attempt++ {
		err := a.appSvc.HandleReminder(ctx, &event)
		if err == nil {
			return
		}
		retriable := errors.Is(err, reminder.ErrDeliveryFailure)
		if !retriable || attempt == maxAttempts {
			logger.Ctx(ctx).Error().Err(err).Str("notification", event.NotificationID).
				Int("attempts", attempt).Msg("giving up on reminder event")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.AddEvent("RetryDelivery", trace.WithAttributes(attribute.Int("attempt", attempt)))
		select {
		case <-time.After(time.Duration(attempt) * a.retryDelay):
		case <-ctx.Done():
			return
		}
	}
}
