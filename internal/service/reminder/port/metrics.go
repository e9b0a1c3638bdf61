package port

import "time"

// Outcome 是扫描器处理一条到期提醒的结果
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeSendFailed Outcome = "send_failed"
)

// Metrics 是业务指标的出站端口，由 Prometheus 适配器实现
type Metrics interface {
	PurchaseCreated()
	RemindersScheduled(n int)
	SchedulingFailed()
	ReminderProcessed(outcome Outcome)
	SweepCompleted(elapsed time.Duration, fired int)
}

// NopMetrics 丢弃所有指标
type NopMetrics struct{}

func (NopMetrics) PurchaseCreated()                  {}
func (NopMetrics) RemindersScheduled(int)            {}
func (NopMetrics) SchedulingFailed()                 {}
func (NopMetrics) ReminderProcessed(Outcome)         {}
func (NopMetrics) SweepCompleted(time.Duration, int) {}
