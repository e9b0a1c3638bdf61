package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returnremind/internal/service/reminder/domain"
)

type repoFactory func(t *testing.T) (domain.PurchaseRepository, domain.NotificationRepository)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func newPurchase(t *testing.T, id, owner, date string, window int, createdAt time.Time) *domain.Purchase {
	t.Helper()
	p, err := domain.NewPurchase(owner, domain.NewPurchaseInput{
		MerchantName:     "Shop " + id,
		ItemName:         "Item " + id,
		PurchaseDate:     date,
		ReturnWindowDays: &window,
	}, id, createdAt)
	require.NoError(t, err)
	return p
}

func purchaseIDs(ps []*domain.Purchase) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func notificationTypes(ns []*domain.Notification) []domain.NotificationType {
	out := make([]domain.NotificationType, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Type)
	}
	return out
}

func plan(p *domain.Purchase, prefix string) []*domain.Notification {
	seq := 0
	newID := func() string {
		seq++
		return fmt.Sprintf("%s-%s-%d", prefix, p.ID, seq)
	}
	return domain.PlanNotifications(p, domain.DefaultLeadTimes(), 9*time.Hour, newID, p.CreatedAt)
}

func runRepositoryContract(t *testing.T, newRepos repoFactory) {
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create and find by owner", func(t *testing.T) {
		purchases, _ := newRepos(t)
		p := newPurchase(t, "p1", "alice", "2024-01-01", 30, created)
		require.NoError(t, purchases.Create(ctx, p))

		got, err := purchases.FindByID(ctx, "alice", "p1")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-31", got.ReturnDeadline.Format(domain.DateLayout))
		assert.Equal(t, "2024-01-01", got.PurchaseDate.Format(domain.DateLayout))
		assert.Equal(t, 30, got.ReturnWindowDays)
		assert.False(t, got.RemindersScheduled)

		_, err = purchases.FindByID(ctx, "bob", "p1")
		assert.ErrorIs(t, err, domain.ErrPurchaseNotFound)
		_, err = purchases.FindByID(ctx, "alice", "missing")
		assert.ErrorIs(t, err, domain.ErrPurchaseNotFound)
	})

	t.Run("active and history are partitioned by deadline day", func(t *testing.T) {
		purchases, _ := newRepos(t)
		for _, p := range []*domain.Purchase{
			newPurchase(t, "late", "alice", "2024-01-01", 60, created),
			newPurchase(t, "today", "alice", "2024-01-01", 30, created),
			newPurchase(t, "yesterday", "alice", "2024-01-01", 29, created),
			newPurchase(t, "old", "alice", "2023-12-01", 10, created),
			newPurchase(t, "other", "bob", "2024-01-01", 30, created),
		} {
			require.NoError(t, purchases.Create(ctx, p))
		}
		asOf := time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)

		active, err := purchases.ListActive(ctx, "alice", asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"today", "late"}, purchaseIDs(active))

		history, err := purchases.ListHistory(ctx, "alice", asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"yesterday", "old"}, purchaseIDs(history))

		none, err := purchases.ListActive(ctx, "nobody", asOf)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("equal deadlines break ties by creation time", func(t *testing.T) {
		purchases, _ := newRepos(t)
		require.NoError(t, purchases.Create(ctx, newPurchase(t, "b", "alice", "2024-01-01", 10, created.Add(time.Minute))))
		require.NoError(t, purchases.Create(ctx, newPurchase(t, "a", "alice", "2024-01-01", 10, created)))

		active, err := purchases.ListActive(ctx, "alice", day(t, "2024-01-05"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, purchaseIDs(active))
	})

	t.Run("save schedule is idempotent", func(t *testing.T) {
		purchases, notifications := newRepos(t)
		p := newPurchase(t, "p1", "alice", "2024-01-01", 30, created)
		require.NoError(t, purchases.Create(ctx, p))

		first, err := notifications.SaveSchedule(ctx, p.ID, plan(p, "a"))
		require.NoError(t, err)
		require.Len(t, first, 4)
		assert.Equal(t, []domain.NotificationType{
			domain.NotificationReminder7d, domain.NotificationReminder3d,
			domain.NotificationReminder1d, domain.NotificationFinalDay,
		}, notificationTypes(first))
		assert.True(t, first[0].ScheduledFor.Equal(time.Date(2024, 1, 24, 9, 0, 0, 0, time.UTC)))
		require.NotNil(t, first[0].Purchase)
		assert.Equal(t, "Item p1", first[0].Purchase.ItemName)

		second, err := notifications.SaveSchedule(ctx, p.ID, plan(p, "b"))
		require.NoError(t, err)
		require.Len(t, second, 4)
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID)
		}

		unscheduled, err := purchases.ListUnscheduled(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, unscheduled)
	})

	t.Run("list unscheduled", func(t *testing.T) {
		purchases, notifications := newRepos(t)
		p1 := newPurchase(t, "p1", "alice", "2024-01-01", 30, created)
		p2 := newPurchase(t, "p2", "alice", "2024-01-01", 30, created.Add(time.Second))
		require.NoError(t, purchases.Create(ctx, p1))
		require.NoError(t, purchases.Create(ctx, p2))
		_, err := notifications.SaveSchedule(ctx, p1.ID, plan(p1, "a"))
		require.NoError(t, err)

		unscheduled, err := purchases.ListUnscheduled(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2"}, purchaseIDs(unscheduled))
	})

	t.Run("pending excludes overdue reminders", func(t *testing.T) {
		purchases, notifications := newRepos(t)
		p := newPurchase(t, "p1", "alice", "2024-01-01", 30, created)
		require.NoError(t, purchases.Create(ctx, p))
		_, err := notifications.SaveSchedule(ctx, p.ID, plan(p, "a"))
		require.NoError(t, err)

		// 7 天与 3 天提醒已到期但未被扫描
		upcoming, err := notifications.ListPending(ctx, "alice", time.Date(2024, 1, 29, 12, 0, 0, 0, time.UTC), time.Time{})
		require.NoError(t, err)
		require.Len(t, upcoming, 2)
		assert.Equal(t, domain.NotificationReminder1d, upcoming[0].Type)
		assert.Equal(t, domain.NotificationFinalDay, upcoming[1].Type)

		// 计划时间恰好等于 after 的不算未来
		boundary, err := notifications.ListPending(ctx, "alice", time.Date(2024, 1, 28, 9, 0, 0, 0, time.UTC), time.Time{})
		require.NoError(t, err)
		assert.Len(t, boundary, 2)

		expired, err := notifications.ListPending(ctx, "alice", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), time.Time{})
		require.NoError(t, err)
		assert.Empty(t, expired)
	})

	t.Run("pending due and fire", func(t *testing.T) {
		purchases, notifications := newRepos(t)
		p := newPurchase(t, "p1", "alice", "2024-01-01", 30, created)
		require.NoError(t, purchases.Create(ctx, p))
		stored, err := notifications.SaveSchedule(ctx, p.ID, plan(p, "a"))
		require.NoError(t, err)

		all, err := notifications.ListPending(ctx, "alice", created, time.Time{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		window, err := notifications.ListPending(ctx, "alice", created, time.Date(2024, 1, 28, 9, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, window, 2)

		others, err := notifications.ListPending(ctx, "bob", created, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, others)

		asOf := time.Date(2024, 1, 24, 10, 0, 0, 0, time.UTC)
		due, err := notifications.ListDue(ctx, asOf, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, stored[0].ID, due[0].ID)
		require.NotNil(t, due[0].Purchase)

		claimed, err := notifications.MarkFired(ctx, due[0].ID, asOf, false)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = notifications.MarkFired(ctx, due[0].ID, asOf.Add(time.Minute), false)
		require.NoError(t, err)
		assert.False(t, claimed, "second claim must lose")

		due, err = notifications.ListDue(ctx, asOf, 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		pending, err := notifications.ListPending(ctx, "alice", created, time.Time{})
		require.NoError(t, err)
		assert.Len(t, pending, 3)

		byPurchase, err := notifications.ListByPurchase(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, byPurchase, 4)
		require.NotNil(t, byPurchase[0].FiredAt)
		assert.True(t, byPurchase[0].FiredAt.Equal(asOf))
		assert.Equal(t, domain.NotificationFired, byPurchase[0].State())
		assert.False(t, byPurchase[0].Skipped)
	})

	t.Run("list due respects limit", func(t *testing.T) {
		purchases, notifications := newRepos(t)
		p := newPurchase(t, "p1", "alice", "2024-01-01", 30, created)
		require.NoError(t, purchases.Create(ctx, p))
		_, err := notifications.SaveSchedule(ctx, p.ID, plan(p, "a"))
		require.NoError(t, err)

		due, err := notifications.ListDue(ctx, day(t, "2024-03-01"), 3)
		require.NoError(t, err)
		assert.Equal(t, []domain.NotificationType{
			domain.NotificationReminder7d, domain.NotificationReminder3d, domain.NotificationReminder1d,
		}, notificationTypes(due))
	})

	t.Run("mark fired unknown id", func(t *testing.T) {
		_, notifications := newRepos(t)
		claimed, err := notifications.MarkFired(ctx, "nope", created, false)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}
