package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace/noop"

	"returnremind/internal/service/reminder/domain"
	"returnremind/internal/service/reminder/infrastructure"
	"returnremind/internal/service/reminder/port"
)

var tracer = noop.NewTracerProvider().Tracer("test")

// recordingSender 记录收到的提醒，可以按需注入失败
type recordingSender struct {
	mu   sync.Mutex
	sent []*domain.Notification
	err  error
}

func (s *recordingSender) Send(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// countingMetrics 只统计关心的几个指标
type countingMetrics struct {
	port.NopMetrics
	mu                 sync.Mutex
	purchases          int
	schedulingFailures int
	outcomes           map[port.Outcome]int
}

func (m *countingMetrics) PurchaseCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases++
}

func (m *countingMetrics) SchedulingFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedulingFailures++
}

func (m *countingMetrics) ReminderProcessed(o port.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[port.Outcome]int)
	}
	m.outcomes[o]++
}

// flakyNotifications 在 SaveSchedule 上返回错误，其余委托给内存实现
type flakyNotifications struct {
	domain.NotificationRepository
	mu    sync.Mutex
	fails int
}

func (f *flakyNotifications) SaveSchedule(ctx context.Context, purchaseID string, planned []*domain.Notification) ([]*domain.Notification, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return nil, errors.New("database unavailable")
	}
	f.mu.Unlock()
	return f.NotificationRepository.SaveSchedule(ctx, purchaseID, planned)
}

type fixture struct {
	store     *infrastructure.MemoryStore
	sender    *recordingSender
	metrics   *countingMetrics
	scheduler *NotificationScheduler
	service   *ReminderService
	now       time.Time
}

func newFixture(t *testing.T, now time.Time, notifications domain.NotificationRepository) *fixture {
	t.Helper()
	f := &fixture{
		store:   infrastructure.NewMemoryStore(),
		sender:  &recordingSender{},
		metrics: &countingMetrics{},
		now:     now,
	}
	if notifications == nil {
		notifications = f.store
	}
	clock := port.ClockFunc(func() time.Time { return f.now })
	f.scheduler = NewNotificationScheduler(f.store, notifications, f.sender, f.metrics, tracer, clock, SchedulerConfig{
		SendOffset: 9 * time.Hour,
		BatchSize:  2,
	})
	f.service = NewReminderService(f.store, f.scheduler, f.metrics, tracer, clock)
	return f
}

func intPtr(v int) *int { return &v }

func addRequest(merchant, item, date string, window int) *AddPurchaseRequest {
	return &AddPurchaseRequest{MerchantName: merchant, ItemName: item, PurchaseDate: date, ReturnWindowDays: intPtr(window)}
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}
