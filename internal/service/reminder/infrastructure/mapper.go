package infrastructure

import (
	"returnremind/internal/service/reminder/domain"
)

// ToDomainPurchase 将数据库模型转换为领域模型
func ToDomainPurchase(m *PurchaseModel) *domain.Purchase {
	if m == nil {
		return nil
	}
	return &domain.Purchase{
		ID:                 m.ID,
		OwnerID:            m.OwnerID,
		MerchantName:       m.MerchantName,
		ItemName:           m.ItemName,
		PurchaseDate:       domain.DateOf(m.PurchaseDate),
		ReturnWindowDays:   m.ReturnWindowDays,
		ReturnDeadline:     domain.DateOf(m.ReturnDeadline),
		CreatedAt:          m.CreatedAt.UTC(),
		RemindersScheduled: m.RemindersScheduled,
	}
}

func FromDomainPurchase(p *domain.Purchase) *PurchaseModel {
	if p == nil {
		return nil
	}
	return &PurchaseModel{
		ID:                 p.ID,
		OwnerID:            p.OwnerID,
		MerchantName:       p.MerchantName,
		ItemName:           p.ItemName,
		PurchaseDate:       p.PurchaseDate,
		ReturnWindowDays:   p.ReturnWindowDays,
		ReturnDeadline:     p.ReturnDeadline,
		RemindersScheduled: p.RemindersScheduled,
		CreatedAt:          p.CreatedAt,
	}
}

// ToDomainNotification 转换提醒；预加载了 Purchase 时一并转换
func ToDomainNotification(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}
	n := &domain.Notification{
		ID:           m.ID,
		PurchaseID:   m.PurchaseID,
		OwnerID:      m.OwnerID,
		Type:         domain.NotificationType(m.Type),
		ScheduledFor: m.ScheduledFor.UTC(),
		Skipped:      m.Skipped,
		CreatedAt:    m.CreatedAt.UTC(),
	}
	if m.FiredAt != nil {
		firedAt := m.FiredAt.UTC()
		n.FiredAt = &firedAt
	}
	if m.Purchase.ID != "" {
		n.Purchase = ToDomainPurchase(&m.Purchase)
	}
	return n
}

// FromDomainNotification 只用于插入，关联的 Purchase 不会被写回
func FromDomainNotification(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}
	return &NotificationModel{
		ID:           n.ID,
		PurchaseID:   n.PurchaseID,
		OwnerID:      n.OwnerID,
		Type:         string(n.Type),
		ScheduledFor: n.ScheduledFor,
		FiredAt:      n.FiredAt,
		Skipped:      n.Skipped,
		CreatedAt:    n.CreatedAt,
	}
}

func toDomainPurchases(models []PurchaseModel) []*domain.Purchase {
	out := make([]*domain.Purchase, 0, len(models))
	for i := range models {
		out = append(out, ToDomainPurchase(&models[i]))
	}
	return out
}

func toDomainNotifications(models []NotificationModel) []*domain.Notification {
	out := make([]*domain.Notification, 0, len(models))
	for i := range models {
		out = append(out, ToDomainNotification(&models[i]))
	}
	return out
}
