package domain

import (
	"sort"
	"strings"
	"time"
)

// Status 是购买记录的派生状态，不落库，随时间推移自动变化
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Purchase 是购买记录聚合根。创建后只追加，不支持修改或删除。
type Purchase struct {
	ID               string
	OwnerID          string
	MerchantName     string
	ItemName         string
	PurchaseDate     time.Time // 日历日（UTC 零点）
	ReturnWindowDays int
	ReturnDeadline   time.Time // 恒等于 PurchaseDate + ReturnWindowDays
	CreatedAt        time.Time

	// RemindersScheduled 表示提醒集合是否已经生成；为 false 的记录由补偿任务重试
	RemindersScheduled bool
}

// NewPurchaseInput 是创建购买记录的原始输入，字段保持字符串形式以便统一校验
type NewPurchaseInput struct {
	MerchantName     string
	ItemName         string
	PurchaseDate     string
	ReturnWindowDays *int
}

// NewPurchase 校验输入并构造购买记录，所有字段错误汇总到一个 *ValidationError 中返回。
func NewPurchase(ownerID string, in NewPurchaseInput, id string, createdAt time.Time) (*Purchase, error) {
	verr := &ValidationError{}

	if strings.TrimSpace(ownerID) == "" {
		verr.add("ownerId", "must not be empty")
	}
	merchant := strings.TrimSpace(in.MerchantName)
	if merchant == "" {
		verr.add("merchantName", "must not be empty")
	}
	item := strings.TrimSpace(in.ItemName)
	if item == "" {
		verr.add("itemName", "must not be empty")
	}

	var purchaseDate time.Time
	if strings.TrimSpace(in.PurchaseDate) == "" {
		verr.add("purchaseDate", "must not be empty")
	} else if d, err := ParseDate(in.PurchaseDate); err != nil {
		verr.add("purchaseDate", "must be a date in YYYY-MM-DD format")
	} else {
		purchaseDate = d
	}

	window := 0
	switch {
	case in.ReturnWindowDays == nil:
		verr.add("returnWindowDays", "is required")
	case *in.ReturnWindowDays < 0:
		verr.add("returnWindowDays", "must be >= 0")
	default:
		window = *in.ReturnWindowDays
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	deadline, err := ComputeDeadline(purchaseDate, window)
	if err != nil {
		verr.add("returnWindowDays", err.Error())
		return nil, verr
	}

	return &Purchase{
		ID:               id,
		OwnerID:          ownerID,
		MerchantName:     merchant,
		ItemName:         item,
		PurchaseDate:     DateOf(purchaseDate),
		ReturnWindowDays: window,
		ReturnDeadline:   deadline,
		CreatedAt:        createdAt,
	}, nil
}

// IsActive 截止日不早于 asOf 所在日期即为进行中
func (p *Purchase) IsActive(asOf time.Time) bool {
	return !p.ReturnDeadline.Before(DateOf(asOf))
}

func (p *Purchase) Status(asOf time.Time) Status {
	if p.IsActive(asOf) {
		return StatusActive
	}
	return StatusExpired
}

func (p *Purchase) DaysRemaining(asOf time.Time) int {
	return DaysRemaining(p.ReturnDeadline, asOf)
}

// SortActive 按截止日升序（最紧急的在前），截止日相同时按创建时间、ID 保证稳定
func SortActive(ps []*Purchase) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if !a.ReturnDeadline.Equal(b.ReturnDeadline) {
			return a.ReturnDeadline.Before(b.ReturnDeadline)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortHistory 按截止日降序（最近过期的在前）
func SortHistory(ps []*Purchase) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if !a.ReturnDeadline.Equal(b.ReturnDeadline) {
			return a.ReturnDeadline.After(b.ReturnDeadline)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
