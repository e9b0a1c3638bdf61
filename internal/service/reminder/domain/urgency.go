package domain

// Tier 是根据剩余天数划分的紧急程度，用于展示排序和提醒阈值
type Tier string

const (
	TierCritical Tier = "critical" // <= 1 天（包括已过期）
	TierHigh     Tier = "high"     // 2-3 天
	TierMedium   Tier = "medium"   // 4-7 天
	TierLow      Tier = "low"      // >= 8 天
)

// Classify 把剩余天数映射到紧急程度。
// 负数同样返回 critical；已进入历史列表的购买不应再展示紧急程度。
func Classify(daysRemaining int) Tier {
	switch {
	case daysRemaining <= 1:
		return TierCritical
	case daysRemaining <= 3:
		return TierHigh
	case daysRemaining <= 7:
		return TierMedium
	default:
		return TierLow
	}
}
