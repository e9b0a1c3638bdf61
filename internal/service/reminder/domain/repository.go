package domain

import (
	"context"
	"time"
)

// PurchaseRepository 定义了购买记录的持久化接口。
// 它位于领域层，但由基础设施层实现。
type PurchaseRepository interface {
	// Create 插入一条新记录，失败时不产生任何部分写入。
	Create(ctx context.Context, p *Purchase) error

	// FindByID 查找属于 ownerID 的记录，不存在时返回 ErrPurchaseNotFound。
	FindByID(ctx context.Context, ownerID, id string) (*Purchase, error)

	// ListActive 返回截止日 >= asOf 所在日期的记录，按截止日升序。
	ListActive(ctx context.Context, ownerID string, asOf time.Time) ([]*Purchase, error)

	// ListHistory 返回截止日 < asOf 所在日期的记录，按截止日降序。
	ListHistory(ctx context.Context, ownerID string, asOf time.Time) ([]*Purchase, error)

	// ListUnscheduled 返回提醒尚未生成的记录，供补偿任务使用。
	ListUnscheduled(ctx context.Context, limit int) ([]*Purchase, error)
}

// NotificationRepository 定义了提醒的持久化接口。
type NotificationRepository interface {
	// SaveSchedule 在一个事务中插入尚不存在的 (purchase, type) 提醒并把购买标记为已调度，
	// 返回该购买当前完整的提醒集合。重复调用不会产生重复记录。
	SaveSchedule(ctx context.Context, purchaseID string, planned []*Notification) ([]*Notification, error)

	// ListByPurchase 返回某个购买的全部提醒，按计划时间升序。
	ListByPurchase(ctx context.Context, purchaseID string) ([]*Notification, error)

	// ListPending 返回 ownerID 未发送且计划时间晚于 after 的提醒（附带 Purchase），
	// until 非零时只返回计划时间 <= until 的。
	ListPending(ctx context.Context, ownerID string, after, until time.Time) ([]*Notification, error)

	// ListDue 返回所有未发送且计划时间 <= asOf 的提醒（附带 Purchase），最多 limit 条。
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]*Notification, error)

	// MarkFired 是条件更新：仅当 fired_at 为空时写入，返回本次调用是否抢到了这条提醒。
	MarkFired(ctx context.Context, id string, firedAt time.Time, skipped bool) (bool, error)
}
