// internal/service/reminder/application/scheduler.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/service/reminder/domain"
	"returnremind/internal/service/reminder/port"
)

const defaultBatchSize = 100

// SchedulerConfig 是提醒调度的可注入配置
type SchedulerConfig struct {
	LeadTimes  []domain.LeadTime
	SendOffset time.Duration // 提醒日零点之后多久发送，例如 9h 表示早上 9 点
	LookAhead  time.Duration // 展示未来多久内的提醒，0 表示全部未来提醒
	BatchSize  int           // 扫描/补偿每批处理的数量
}

// NotificationScheduler 负责生成、查询和投递提醒
type NotificationScheduler struct {
	purchases     domain.PurchaseRepository
	notifications domain.NotificationRepository
	sender        port.NotificationSender
	metrics       port.Metrics
	tracer        trace.Tracer
	clock         port.Clock
	cfg           SchedulerConfig
	newID         func() string
}

func NewNotificationScheduler(purchases domain.PurchaseRepository, notifications domain.NotificationRepository, sender port.NotificationSender, metrics port.Metrics, tracer trace.Tracer, clock port.Clock, cfg SchedulerConfig) *NotificationScheduler {
	if cfg.LeadTimes == nil {
		cfg.LeadTimes = domain.DefaultLeadTimes()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &NotificationScheduler{
		purchases: purchases, notifications: notifications,
		sender: sender, metrics: metrics, tracer: tracer, clock: clock,
		cfg: cfg, newID: uuid.NewString,
	}
}

// ScheduleFor 生成购买记录的完整提醒集合并持久化。
// 唯一约束 (purchase_id, type) 保证重复调用返回同一集合，不会翻倍。
func (s *NotificationScheduler) ScheduleFor(ctx context.Context, p *domain.Purchase) ([]*domain.Notification, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.ScheduleFor", trace.WithAttributes(
		attribute.String("purchase.id", p.ID),
		attribute.String("purchase.deadline", p.ReturnDeadline.Format(domain.DateLayout)),
	))
	defer span.End()

	planned := domain.PlanNotifications(p, s.cfg.LeadTimes, s.cfg.SendOffset, s.newID, s.clock.Now())
	stored, err := s.notifications.SaveSchedule(ctx, p.ID, planned)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save schedule failed")
		return nil, errors.Wrapf(domain.ErrSchedulingFailure, "purchase %s: %v", p.ID, err)
	}
	p.RemindersScheduled = true

	span.SetAttributes(attribute.Int("notification.count", len(stored)))
	s.metrics.RemindersScheduled(len(stored))
	return stored, nil
}

// PendingFor 返回 ownerID 计划时间晚于 asOf 且尚未发送的提醒，按计划时间升序。
// 已到期但还没被扫描的提醒不算即将发送。
func (s *NotificationScheduler) PendingFor(ctx context.Context, ownerID string, asOf time.Time) ([]*domain.Notification, error) {
	var until time.Time
	if s.cfg.LookAhead > 0 {
		until = asOf.Add(s.cfg.LookAhead)
	}
	ns, err := s.notifications.ListPending(ctx, ownerID, asOf, until)
	if err != nil {
		return nil, errors.Wrap(err, "list pending notifications")
	}
	return ns, nil
}

// DeliverDue 扫描所有到期未发送的提醒：先用条件更新认领，认领成功者才投递。
// 重复或并发调用不会重复投递，返回本次新认领的数量。
// 过时的提醒（截止日已过，或剩余天数已少于提前天数）同样被认领，但标记为 skipped 且不投递。
func (s *NotificationScheduler) DeliverDue(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.DeliverDue", trace.WithAttributes(
		attribute.String("as_of", asOf.Format(time.RFC3339)),
	))
	defer span.End()

	fired := 0
	for {
		if err := ctx.Err(); err != nil {
			return fired, err
		}
		batch, err := s.notifications.ListDue(ctx, asOf, s.cfg.BatchSize)
		if err != nil {
			span.RecordError(err)
			return fired, errors.Wrap(err, "list due notifications")
		}

		for _, n := range batch {
			stale := n.IsStale(asOf)
			claimed, err := s.notifications.MarkFired(ctx, n.ID, asOf, stale)
			if err != nil {
				span.RecordError(err)
				return fired, errors.Wrapf(err, "mark notification %s fired", n.ID)
			}
			if !claimed {
				// 另一个扫描实例已经处理
				continue
			}
			fired++
			firedAt := asOf
			n.FiredAt = &firedAt
			n.Skipped = stale

			if stale {
				s.metrics.ReminderProcessed(port.OutcomeSkipped)
				logger.Ctx(ctx).Info().Str("notification", n.ID).Str("purchase", n.PurchaseID).
					Str("type", string(n.Type)).Msg("reminder superseded, skipped")
				continue
			}
			s.deliver(ctx, n)
		}

		if len(batch) < s.cfg.BatchSize {
			break
		}
	}

	span.SetAttributes(attribute.Int("notification.fired", fired))
	return fired, nil
}

// deliver 投递失败只记录，不回滚 fired_at：fired_at 表示 "已被扫描处理"
func (s *NotificationScheduler) deliver(ctx context.Context, n *domain.Notification) {
	if err := s.sender.Send(ctx, n); err != nil {
		s.metrics.ReminderProcessed(port.OutcomeSendFailed)
		logger.Ctx(ctx).Error().Err(errors.Wrap(domain.ErrDeliveryFailure, err.Error())).
			Str("notification", n.ID).Str("owner", n.OwnerID).Msg("failed to hand reminder to delivery channel")
		return
	}
	s.metrics.ReminderProcessed(port.OutcomeSent)
	logger.Ctx(ctx).Debug().Str("notification", n.ID).Str("type", string(n.Type)).Msg("reminder delivered")
}

// Backfill 为提醒尚未生成的购买记录补做调度，是 ScheduleFor 失败后的恢复路径
func (s *NotificationScheduler) Backfill(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.Backfill")
	defer span.End()

	pending, err := s.purchases.ListUnscheduled(ctx, s.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, "list unscheduled purchases")
	}

	scheduled := 0
	for _, p := range pending {
		if _, err := s.ScheduleFor(ctx, p); err != nil {
			s.metrics.SchedulingFailed()
			logger.Ctx(ctx).Error().Err(err).Str("purchase", p.ID).Msg("backfill scheduling failed, will retry")
			continue
		}
		scheduled++
	}
	if scheduled > 0 {
		logger.Ctx(ctx).Info().Int("count", scheduled).Msg("backfilled reminder schedules")
	}
	return scheduled, nil
}
