// internal/service/reminder/application/dto.go
package application

import (
	"time"

	"returnremind/internal/service/reminder/domain"
)

// AddPurchaseRequest 是创建购买记录用例的输入数据
type AddPurchaseRequest struct {
	MerchantName     string `json:"merchantName"`
	ItemName         string `json:"itemName"`
	PurchaseDate     string `json:"purchaseDate"`
	ReturnWindowDays *int   `json:"returnWindowDays"`
}

// PurchaseDTO 是购买记录的对外表示；DaysRemaining 和 Urgency 只在进行中的记录上出现
type PurchaseDTO struct {
	ID               string        `json:"id"`
	MerchantName     string        `json:"merchantName"`
	ItemName         string        `json:"itemName"`
	PurchaseDate     string        `json:"purchaseDate"`
	ReturnWindowDays int           `json:"returnWindowDays"`
	ReturnDeadline   string        `json:"returnDeadline"`
	Status           domain.Status `json:"status"`
	DaysRemaining    *int          `json:"daysRemaining,omitempty"`
	Urgency          domain.Tier   `json:"urgency,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// PurchaseSummary 是提醒列表中附带的购买摘要
type PurchaseSummary struct {
	ID             string `json:"id"`
	MerchantName   string `json:"merchantName"`
	ItemName       string `json:"itemName"`
	ReturnDeadline string `json:"returnDeadline"`
}

type NotificationDTO struct {
	ID           string                   `json:"id"`
	PurchaseID   string                   `json:"purchaseId"`
	Type         domain.NotificationType  `json:"type"`
	ScheduledFor time.Time                `json:"scheduledFor"`
	FiredAt      *time.Time               `json:"firedAt"`
	State        domain.NotificationState `json:"state"`
	Purchase     *PurchaseSummary         `json:"purchase,omitempty"`
}

// Dashboard 聚合了界面需要的三个列表
type Dashboard struct {
	AsOf          string            `json:"asOf"`
	Active        []PurchaseDTO     `json:"active"`
	History       []PurchaseDTO     `json:"history"`
	Notifications []NotificationDTO `json:"notifications"`
}

// AddPurchaseResponse 直接返回刷新后的看板，客户端无需再次拉取三个列表
type AddPurchaseResponse struct {
	Purchase  PurchaseDTO `json:"purchase"`
	Dashboard *Dashboard  `json:"dashboard"`
}

// ToPurchaseDTO 把领域对象转换为 DTO，并按 asOf 计算派生字段
func ToPurchaseDTO(p *domain.Purchase, asOf time.Time) PurchaseDTO {
	dto := PurchaseDTO{
		ID:               p.ID,
		MerchantName:     p.MerchantName,
		ItemName:         p.ItemName,
		PurchaseDate:     p.PurchaseDate.Format(domain.DateLayout),
		ReturnWindowDays: p.ReturnWindowDays,
		ReturnDeadline:   p.ReturnDeadline.Format(domain.DateLayout),
		Status:           p.Status(asOf),
		CreatedAt:        p.CreatedAt,
	}
	if dto.Status == domain.StatusActive {
		days := p.DaysRemaining(asOf)
		dto.DaysRemaining = &days
		dto.Urgency = domain.Classify(days)
	}
	return dto
}

func ToPurchaseDTOs(ps []*domain.Purchase, asOf time.Time) []PurchaseDTO {
	out := make([]PurchaseDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToPurchaseDTO(p, asOf))
	}
	return out
}

func ToNotificationDTO(n *domain.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:           n.ID,
		PurchaseID:   n.PurchaseID,
		Type:         n.Type,
		ScheduledFor: n.ScheduledFor,
		FiredAt:      n.FiredAt,
		State:        n.State(),
	}
	if p := n.Purchase; p != nil {
		dto.Purchase = &PurchaseSummary{
			ID:             p.ID,
			MerchantName:   p.MerchantName,
			ItemName:       p.ItemName,
			ReturnDeadline: p.ReturnDeadline.Format(domain.DateLayout),
		}
	}
	return dto
}

func ToNotificationDTOs(ns []*domain.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(ns))
	for _, n := range ns {
		out = append(out, ToNotificationDTO(n))
	}
	return out
}
