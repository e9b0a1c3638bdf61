// internal/service/reminder/application/sweeper.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/service/reminder/port"
)

// Sweeper 周期性地补做失败的调度并投递到期提醒
type Sweeper struct {
	scheduler *NotificationScheduler
	lock      port.SweepLock // 可以为 nil
	clock     port.Clock
	metrics   port.Metrics
	tracer    trace.Tracer
	interval  time.Duration
}

func NewSweeper(scheduler *NotificationScheduler, lock port.SweepLock, clock port.Clock, metrics port.Metrics, tracer trace.Tracer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &Sweeper{scheduler: scheduler, lock: lock, clock: clock, metrics: metrics, tracer: tracer, interval: interval}
}

// Run 启动定时轮询器，ctx 取消时返回
func (s *Sweeper) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Dur("interval", s.interval).Msg("reminder sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("reminder sweeper stopping")
			return ctx.Err()
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		logger.Ctx(ctx).Error().Err(err).Msg("sweep failed")
	}
}

// RunOnce 执行一轮扫描。拿不到分布式锁时直接跳过本轮，返回 0。
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "sweeper.RunOnce")
	defer span.End()

	if s.lock != nil {
		release, acquired, err := s.lock.TryAcquire(ctx)
		if err != nil {
			// 锁服务不可用时继续扫描，条件更新保证不会重复投递
			logger.Ctx(ctx).Warn().Err(err).Msg("sweep lock unavailable, sweeping without it")
		} else if !acquired {
			span.AddEvent("SweepLockHeldElsewhere")
			return 0, nil
		} else {
			defer release()
		}
	}

	start := time.Now()
	if _, err := s.scheduler.Backfill(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("backfill failed")
	}

	fired, err := s.scheduler.DeliverDue(ctx, s.clock.Now())
	s.metrics.SweepCompleted(time.Since(start), fired)
	if err != nil {
		span.RecordError(err)
		return fired, err
	}
	if fired > 0 {
		logger.Ctx(ctx).Info().Int("fired", fired).Msg("sweep completed")
	}
	return fired, nil
}
