package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/service/notification/domain"
	"returnremind/internal/service/notification/port"
	reminder "returnremind/internal/service/reminder/domain"
)

// NotificationService 把提醒事件渲染成邮件并发送
type NotificationService struct {
	mailer     port.Mailer
	deliveries port.DeliveryLog // 可以为 nil
	tracer     trace.Tracer
}

func NewNotificationService(mailer port.Mailer, deliveries port.DeliveryLog, tracer trace.Tracer) *NotificationService {
	return &NotificationService{mailer: mailer, deliveries: deliveries, tracer: tracer}
}

// HandleReminder 处理一条提醒事件。同一提醒被重复投递时只发送一次。
func (s *NotificationService) HandleReminder(ctx context.Context, ev *reminder.ReminderEvent) error {
	ctx, span := s.tracer.Start(ctx, "notification.HandleReminder", trace.WithAttributes(
		attribute.String("notification.id", ev.NotificationID),
		attribute.String("notification.type", string(ev.Type)),
		attribute.String("user.id", ev.OwnerID),
	))
	defer span.End()

	mail, err := domain.RenderReminder(*ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return err
	}

	if s.deliveries != nil {
		first, err := s.deliveries.MarkOnce(ctx, ev.NotificationID)
		if err != nil {
			// 去重存储不可用时宁可重复发送也不丢提醒
			logger.Ctx(ctx).Warn().Err(err).Str("notification", ev.NotificationID).Msg("delivery log unavailable")
		} else if !first {
			span.AddEvent("DuplicateReminderIgnored")
			logger.Ctx(ctx).Info().Str("notification", ev.NotificationID).Msg("reminder already mailed, skipping")
			return nil
		}
	}

	if err := s.mailer.Send(ctx, mail); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		if s.deliveries != nil {
			if ferr := s.deliveries.Forget(ctx, ev.NotificationID); ferr != nil {
				logger.Ctx(ctx).Warn().Err(ferr).Str("notification", ev.NotificationID).Msg("failed to clear delivery mark")
			}
		}
		return errors.Wrapf(reminder.ErrDeliveryFailure, "mail %s to %s: %v", ev.NotificationID, mail.To, err)
	}

	span.AddEvent("Reminder mailed")
	logger.Ctx(ctx).Info().Str("notification", ev.NotificationID).Str("to", mail.To).Str("subject", mail.Subject).Msg("reminder mailed")
	return nil
}
