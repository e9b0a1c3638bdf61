// internal/service/reminder/application/service.go
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

// ReminderService 是接口层唯一依赖的门面：查询看板、创建购买记录。
// 所有操作都显式接收 ownerID 和 asOf，不依赖任何会话状态。
type ReminderService struct {
	purchases domain.PurchaseRepository
	scheduler *NotificationScheduler
	metrics   port.Metrics
	tracer    trace.Tracer
	clock     port.Clock
	newID     func() string
}

func NewReminderService(purchases domain.PurchaseRepository, scheduler *NotificationScheduler, metrics port.Metrics, tracer trace.Tracer, clock port.Clock) *ReminderService {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &ReminderService{
		purchases: purchases,
		scheduler: scheduler,
		metrics:   metrics,
		tracer:    tracer,
		clock:     clock,
		newID:     uuid.NewString,
	}
}

// AddPurchase 校验并保存购买记录，然后生成提醒。
// 提醒生成失败不影响购买创建：记录保持未调度状态，由扫描器的 Backfill 重试。
func (s *ReminderService) AddPurchase(ctx context.Context, ownerID string, req *AddPurchaseRequest) (*AddPurchaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.AddPurchase", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	now := s.clock.Now()
	purchase, err := domain.NewPurchase(ownerID, domain.NewPurchaseInput{
		MerchantName:     req.MerchantName,
		ItemName:         req.ItemName,
		PurchaseDate:     req.PurchaseDate,
		ReturnWindowDays: req.ReturnWindowDays,
	}, s.newID(), now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid purchase")
		return nil, err
	}

	if err := s.purchases.Create(ctx, purchase); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save purchase")
		logger.Ctx(ctx).Error().Err(err).Str("user", ownerID).Msg("failed to save purchase")
		return nil, errors.Wrap(err, "save purchase")
	}
	s.metrics.PurchaseCreated()
	span.SetAttributes(attribute.String("purchase.id", purchase.ID))

	if _, err := s.scheduler.ScheduleFor(ctx, purchase); err != nil {
		// 非关键路径失败：只记录，购买创建依然成功
		s.metrics.SchedulingFailed()
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Str("purchase", purchase.ID).Msg("reminder scheduling deferred to backfill")
	}

	dashboard, err := s.GetDashboard(ctx, ownerID, now)
	if err != nil {
		// 看板读取失败同样不应让已经成功的写入返回错误
		logger.Ctx(ctx).Warn().Err(err).Str("user", ownerID).Msg("failed to build dashboard after purchase creation")
		dashboard = nil
	}

	logger.Ctx(ctx).Info().Str("purchase", purchase.ID).Str("user", ownerID).
		Str("deadline", purchase.ReturnDeadline.Format(domain.DateLayout)).Msg("purchase created")
	return &AddPurchaseResponse{Purchase: ToPurchaseDTO(purchase, now), Dashboard: dashboard}, nil
}

// GetDashboard 组合进行中、历史和待发送提醒三个读路径
func (s *ReminderService) GetDashboard(ctx context.Context, ownerID string, asOf time.Time) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetDashboard", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	active, err := s.ListActive(ctx, ownerID, asOf)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	history, err := s.ListHistory(ctx, ownerID, asOf)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	upcoming, err := s.ListUpcoming(ctx, ownerID, asOf)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &Dashboard{
		AsOf:          asOf.Format(time.RFC3339),
		Active:        active,
		History:       history,
		Notifications: upcoming,
	}, nil
}

func (s *ReminderService) ListActive(ctx context.Context, ownerID string, asOf time.Time) ([]PurchaseDTO, error) {
	ps, err := s.purchases.ListActive(ctx, ownerID, asOf)
	if err != nil {
		return nil, errors.Wrap(err, "list active purchases")
	}
	return ToPurchaseDTOs(ps, asOf), nil
}

func (s *ReminderService) ListHistory(ctx context.Context, ownerID string, asOf time.Time) ([]PurchaseDTO, error) {
	ps, err := s.purchases.ListHistory(ctx, ownerID, asOf)
	if err != nil {
		return nil, errors.Wrap(err, "list purchase history")
	}
	return ToPurchaseDTOs(ps, asOf), nil
}

func (s *ReminderService) ListUpcoming(ctx context.Context, ownerID string, asOf time.Time) ([]NotificationDTO, error) {
	ns, err := s.scheduler.PendingFor(ctx, ownerID, asOf)
	if err != nil {
		return nil, err
	}
	return ToNotificationDTOs(ns), nil
}

// GetPurchase 单条查询，不存在时返回 domain.ErrPurchaseNotFound
func (s *ReminderService) GetPurchase(ctx context.Context, ownerID, purchaseID string, asOf time.Time) (*PurchaseDTO, error) {
	p, err := s.purchases.FindByID(ctx, ownerID, purchaseID)
	if err != nil {
		return nil, err
	}
	dto := ToPurchaseDTO(p, asOf)
	return &dto, nil
}
