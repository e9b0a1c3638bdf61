package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout 是对外交换日历日期使用的格式
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateOf 把时间戳归一化为它所在日历日的零点（UTC）。
// 只取 t 自身时区下的年月日，不做时区换算。
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD 格式的日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidInput, "unparseable date %q", s)
	}
	return t, nil
}

// ComputeDeadline 计算退货截止日：购买日 + returnWindowDays 个日历日。
// 跨月、跨年由 AddDate 处理；窗口为负数时返回 ErrInvalidInput。
func ComputeDeadline(purchaseDate time.Time, returnWindowDays int) (time.Time, error) {
	if returnWindowDays < 0 {
		return time.Time{}, errors.Wrapf(ErrInvalidInput, "return window must be >= 0, got %d", returnWindowDays)
	}
	return DateOf(purchaseDate).AddDate(0, 0, returnWindowDays), nil
}

// DaysRemaining 返回 (deadline - asOf) 向上取整后的天数。
// 截止日当天为 0，过了截止日为负数。asOf 由调用方提供，函数内部不读取时钟。
func DaysRemaining(deadline, asOf time.Time) int {
	diff := deadline.Sub(asOf)
	days := int(diff / day)
	if diff%day > 0 {
		days++
	}
	return days
}
