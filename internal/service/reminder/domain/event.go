package domain

import "time"

// ReminderEvent 是投递到消息队列的提醒事件，由通知服务渲染成邮件
type ReminderEvent struct {
	NotificationID string           `json:"notificationId"`
	Type           NotificationType `json:"type"`
	DaysBefore     int              `json:"daysBefore"` // 提醒日距截止日的天数
	OwnerID        string           `json:"ownerId"`
	PurchaseID     string           `json:"purchaseId"`
	MerchantName   string           `json:"merchantName"`
	ItemName       string           `json:"itemName"`
	PurchaseDate   string           `json:"purchaseDate"`
	ReturnDeadline string           `json:"returnDeadline"`
	ScheduledFor   time.Time        `json:"scheduledFor"`
	FiredAt        time.Time        `json:"firedAt"`
}

// NewReminderEvent 从已认领的提醒构造事件，n.Purchase 必须已填充
func NewReminderEvent(n *Notification) ReminderEvent {
	ev := ReminderEvent{
		NotificationID: n.ID,
		Type:           n.Type,
		OwnerID:        n.OwnerID,
		PurchaseID:     n.PurchaseID,
		ScheduledFor:   n.ScheduledFor,
		DaysBefore:     n.LeadDays(),
	}
	if n.FiredAt != nil {
		ev.FiredAt = *n.FiredAt
	}
	if p := n.Purchase; p != nil {
		ev.MerchantName = p.MerchantName
		ev.ItemName = p.ItemName
		ev.PurchaseDate = p.PurchaseDate.Format(DateLayout)
		ev.ReturnDeadline = p.ReturnDeadline.Format(DateLayout)
	}
	return ev
}
