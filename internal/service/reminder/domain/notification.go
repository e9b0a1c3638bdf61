package domain

import (
	"sort"
	"time"
)

// NotificationType 标识提醒的种类，同一购买记录每种类型最多一条
type NotificationType string

const (
	NotificationReminder7d NotificationType = "reminder_7d"
	NotificationReminder3d NotificationType = "reminder_3d"
	NotificationReminder1d NotificationType = "reminder_1d"
	NotificationFinalDay   NotificationType = "final_day"
)

// LeadTime 表示在截止日前 Days 天发送 Type 类型的提醒
type LeadTime struct {
	Type NotificationType
	Days int
}

// DefaultLeadTimes 是未配置时使用的提醒集合
func DefaultLeadTimes() []LeadTime {
	return []LeadTime{
		{Type: NotificationReminder7d, Days: 7},
		{Type: NotificationReminder3d, Days: 3},
		{Type: NotificationReminder1d, Days: 1},
		{Type: NotificationFinalDay, Days: 0},
	}
}

// NotificationState 只有 pending -> fired 一个方向
type NotificationState string

const (
	NotificationPending NotificationState = "pending"
	NotificationFired   NotificationState = "fired"
)

// Notification 是一条待发送或已发送的提醒，生命周期受所属 Purchase 约束
type Notification struct {
	ID           string
	PurchaseID   string
	OwnerID      string
	Type         NotificationType
	ScheduledFor time.Time
	FiredAt      *time.Time
	// Skipped 表示扫描时截止日已过，提醒被标记为已处理但没有投递
	Skipped   bool
	CreatedAt time.Time

	// Purchase 在读路径上由仓储填充，用于展示购买摘要和投递内容
	Purchase *Purchase
}

func (n *Notification) State() NotificationState {
	if n.FiredAt != nil {
		return NotificationFired
	}
	return NotificationPending
}

// IsDue 未发送且计划时间不晚于 asOf
func (n *Notification) IsDue(asOf time.Time) bool {
	return n.FiredAt == nil && !n.ScheduledFor.After(asOf)
}

// LeadDays 是提醒日距截止日的天数，由计划时间反推，Purchase 未填充时为 0
func (n *Notification) LeadDays() int {
	if n.Purchase == nil {
		return 0
	}
	return int(n.Purchase.ReturnDeadline.Sub(DateOf(n.ScheduledFor)) / day)
}

// IsStale 剩余天数已经少于提醒的提前天数：截止日已过，或者更晚的提醒已经到期，
// 例如只剩 3 天时不再发送 "还剩 7 天"。
func (n *Notification) IsStale(asOf time.Time) bool {
	return n.Purchase != nil && DaysRemaining(n.Purchase.ReturnDeadline, asOf) < n.LeadDays()
}

// PlanNotifications 根据购买记录和提醒配置计算完整的提醒集合（纯函数）。
// 提醒日 = 截止日 - Days，发送时刻 = 提醒日 + sendOffset；
// 提醒日早于购买日的类型直接跳过，例如 1 天退货期没有 "7 天前" 提醒。
// final_day 的发送时刻是截止日当天的 sendOffset，晚于零点的 ReturnDeadline，
// 因此 "计划时间不晚于截止日" 按日历日比较：DateOf(ScheduledFor) <= ReturnDeadline。
func PlanNotifications(p *Purchase, leadTimes []LeadTime, sendOffset time.Duration, newID func() string, now time.Time) []*Notification {
	seen := make(map[NotificationType]bool, len(leadTimes))
	planned := make([]*Notification, 0, len(leadTimes))
	purchaseDay := DateOf(p.PurchaseDate)

	for _, lt := range leadTimes {
		if lt.Days < 0 || seen[lt.Type] {
			continue
		}
		remindOn := p.ReturnDeadline.AddDate(0, 0, -lt.Days)
		if remindOn.Before(purchaseDay) {
			continue
		}
		seen[lt.Type] = true
		planned = append(planned, &Notification{
			ID:           newID(),
			PurchaseID:   p.ID,
			OwnerID:      p.OwnerID,
			Type:         lt.Type,
			ScheduledFor: remindOn.Add(sendOffset),
			CreatedAt:    now,
		})
	}
	SortBySchedule(planned)
	return planned
}

// SortBySchedule 按计划时间升序排序，时间相同按 ID
func SortBySchedule(ns []*Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if !ns[i].ScheduledFor.Equal(ns[j].ScheduledFor) {
			return ns[i].ScheduledFor.Before(ns[j].ScheduledFor)
		}
		return ns[i].ID < ns[j].ID
	})
}
