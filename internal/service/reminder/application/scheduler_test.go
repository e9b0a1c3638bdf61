package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returnremind/internal/service/reminder/domain"
	"returnremind/internal/service/reminder/port"
)

func TestScheduleFor_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)

	resp, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)
	p, err := f.store.FindByID(ctx, "alice", resp.Purchase.ID)
	require.NoError(t, err)

	again, err := f.scheduler.ScheduleFor(ctx, p)
	require.NoError(t, err)
	assert.Len(t, again, 4)

	all, err := f.store.ListByPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestScheduleFor_ShortWindowSkipsEarlyReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)

	resp, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Socks", "2024-01-01", 2))
	require.NoError(t, err)

	ns, err := f.store.ListByPurchase(ctx, resp.Purchase.ID)
	require.NoError(t, err)
	var types []domain.NotificationType
	for _, n := range ns {
		types = append(types, n.Type)
	}
	assert.Equal(t, []domain.NotificationType{domain.NotificationReminder1d, domain.NotificationFinalDay}, types)
}

func TestScheduleFor_WrapsStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	flaky := &flakyNotifications{NotificationRepository: f.store, fails: 1}
	s := NewNotificationScheduler(f.store, flaky, f.sender, nil, tracer, port.SystemClock, SchedulerConfig{})

	p := &domain.Purchase{ID: "p1", OwnerID: "alice", PurchaseDate: at(2024, 1, 1, 0), ReturnDeadline: at(2024, 1, 31, 0)}
	_, err := s.ScheduleFor(ctx, p)
	assert.ErrorIs(t, err, domain.ErrSchedulingFailure)
	assert.False(t, p.RemindersScheduled)
}

func TestPendingFor_LookAheadBoundsTheWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)

	all, err := f.scheduler.PendingFor(ctx, "alice", at(2024, 1, 1, 12))
	require.NoError(t, err)
	assert.Len(t, all, 4)

	f.scheduler.cfg.LookAhead = 7 * 24 * time.Hour
	week, err := f.scheduler.PendingFor(ctx, "alice", at(2024, 1, 20, 12))
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, domain.NotificationReminder7d, week[0].Type)
	require.NotNil(t, week[0].Purchase)
	assert.Equal(t, "Jacket", week[0].Purchase.ItemName)
}

func TestPendingFor_ExcludesOverdueReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)

	// 没有扫描过，7d 与 3d 已过计划时间
	upcoming, err := f.scheduler.PendingFor(ctx, "alice", at(2024, 1, 29, 12))
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, domain.NotificationReminder1d, upcoming[0].Type)
	assert.Equal(t, domain.NotificationFinalDay, upcoming[1].Type)

	d, err := f.service.GetDashboard(ctx, "alice", at(2024, 2, 10, 0))
	require.NoError(t, err)
	assert.Len(t, d.History, 1)
	assert.Empty(t, d.Notifications)
}

func TestAddPurchase_BackdatedDashboardShowsOnlyFutureReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 28, 10), nil)

	resp, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)
	var types []domain.NotificationType
	for _, n := range resp.Dashboard.Notifications {
		types = append(types, n.Type)
	}
	assert.Equal(t, []domain.NotificationType{domain.NotificationReminder1d, domain.NotificationFinalDay}, types)
}

func TestDeliverDue_FiresEachReminderOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)

	fired, err := f.scheduler.DeliverDue(ctx, at(2024, 1, 23, 12))
	require.NoError(t, err)
	assert.Equal(t, 0, fired)

	fired, err = f.scheduler.DeliverDue(ctx, at(2024, 1, 24, 9))
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, domain.NotificationReminder7d, f.sender.sent[0].Type)
	require.NotNil(t, f.sender.sent[0].FiredAt)

	fired, err = f.scheduler.DeliverDue(ctx, at(2024, 1, 24, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, fired, "repeat sweep at the same instant fires nothing")

	pending, err := f.scheduler.PendingFor(ctx, "alice", at(2024, 1, 24, 9))
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestDeliverDue_DrainsAcrossBatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	for _, item := range []string{"A", "B", "C"} {
		_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", item, "2024-01-01", 30))
		require.NoError(t, err)
	}

	// 三条 7 天提醒，批大小为 2
	fired, err := f.scheduler.DeliverDue(ctx, at(2024, 1, 24, 10))
	require.NoError(t, err)
	assert.Equal(t, 3, fired)
	assert.Equal(t, 3, f.sender.count())
}

func TestDeliverDue_ConcurrentSweepsNeverDoubleSend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	for _, item := range []string{"A", "B", "C", "D", "E"} {
		_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", item, "2024-01-01", 30))
		require.NoError(t, err)
	}

	asOf := at(2024, 1, 30, 10)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.scheduler.DeliverDue(ctx, asOf)
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 每个购买有 7d、3d、1d 三条到期，只剩 1 天时 7d、3d 被跳过
	assert.Equal(t, 15, total)
	assert.Equal(t, 5, f.sender.count())
	assert.Equal(t, 10, f.metrics.outcomes[port.OutcomeSkipped])
	for _, n := range f.sender.sent {
		assert.Equal(t, domain.NotificationReminder1d, n.Type)
	}

	seen := make(map[string]bool)
	for _, n := range f.sender.sent {
		assert.False(t, seen[n.ID], "notification %s sent twice", n.ID)
		seen[n.ID] = true
	}
}

func TestDeliverDue_SkipsRemindersPastTheDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)

	// 服务停机期间错过了全部提醒
	fired, err := f.scheduler.DeliverDue(ctx, at(2024, 2, 2, 9))
	require.NoError(t, err)
	assert.Equal(t, 4, fired)
	assert.Equal(t, 0, f.sender.count())
	assert.Equal(t, 4, f.metrics.outcomes[port.OutcomeSkipped])

	pending, err := f.scheduler.PendingFor(ctx, "alice", at(2024, 2, 2, 9))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeliverDue_SkipsSupersededReminders(t *testing.T) {
	ctx := context.Background()
	// 截止前 3 天才录入购买，7 天提醒一创建就已到期
	f := newFixture(t, at(2024, 1, 28, 10), nil)
	resp, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)

	fired, err := f.scheduler.DeliverDue(ctx, at(2024, 1, 28, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, fired)
	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, domain.NotificationReminder3d, f.sender.sent[0].Type)
	assert.Equal(t, 1, f.metrics.outcomes[port.OutcomeSkipped])

	ns, err := f.store.ListByPurchase(ctx, resp.Purchase.ID)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationReminder7d, ns[0].Type)
	assert.True(t, ns[0].Skipped)
	assert.False(t, ns[1].Skipped)
}

func TestDeliverDue_SendFailureStillFires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	_, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err)
	f.sender.err = errors.New("broker down")

	fired, err := f.scheduler.DeliverDue(ctx, at(2024, 1, 24, 9))
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, f.metrics.outcomes[port.OutcomeSendFailed])

	f.sender.err = nil
	fired, err = f.scheduler.DeliverDue(ctx, at(2024, 1, 24, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}

func TestBackfill_RecoversFailedScheduling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(2024, 1, 1, 12), nil)
	flaky := &flakyNotifications{NotificationRepository: f.store, fails: 1}
	clock := port.ClockFunc(func() time.Time { return f.now })
	f.scheduler = NewNotificationScheduler(f.store, flaky, f.sender, f.metrics, tracer, clock, SchedulerConfig{SendOffset: 9 * time.Hour})
	f.service = NewReminderService(f.store, f.scheduler, f.metrics, tracer, clock)

	resp, err := f.service.AddPurchase(ctx, "alice", addRequest("Acme", "Jacket", "2024-01-01", 30))
	require.NoError(t, err, "scheduling failure must not fail purchase creation")
	assert.Equal(t, 1, f.metrics.schedulingFailures)
	assert.Empty(t, resp.Dashboard.Notifications)

	n, err := f.scheduler.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ns, err := f.store.ListByPurchase(ctx, resp.Purchase.ID)
	require.NoError(t, err)
	assert.Len(t, ns, 4)

	n, err = f.scheduler.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
