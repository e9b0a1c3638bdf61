package port

import "time"

// Clock 是唯一读取当前时间的地方，领域逻辑只接收显式的 asOf
type Clock interface {
	Now() time.Time
}

// ClockFunc 让普通函数满足 Clock 接口
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock 返回 UTC 当前时间
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
