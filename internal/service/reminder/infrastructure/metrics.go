package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"returnremind/internal/service/reminder/port"
)

const metricsNamespace = "returnremind"

// PrometheusMetrics 是 port.Metrics 的 Prometheus 实现
type PrometheusMetrics struct {
	purchasesCreated   prometheus.Counter
	remindersScheduled prometheus.Counter
	schedulingFailures prometheus.Counter
	remindersProcessed *prometheus.CounterVec
	sweepDuration      prometheus.Histogram
	sweepFired         prometheus.Counter
}

var _ port.Metrics = (*PrometheusMetrics)(nil)

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		purchasesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "purchases_created_total",
			Help:      "Purchases accepted and persisted.",
		}),
		remindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_scheduled_total",
			Help:      "Reminder rows present after each scheduling call.",
		}),
		schedulingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scheduling_failures_total",
			Help:      "Scheduling attempts that failed and were left to backfill.",
		}),
		remindersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_processed_total",
			Help:      "Due reminders claimed by the sweeper, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one sweep pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweep_fired_total",
			Help:      "Reminders newly fired across all sweeps.",
		}),
	}
}

// Register 把全部指标注册到 reg，重复注册返回错误
func (m *PrometheusMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.purchasesCreated,
		m.remindersScheduled,
		m.schedulingFailures,
		m.remindersProcessed,
		m.sweepDuration,
		m.sweepFired,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *PrometheusMetrics) PurchaseCreated() { m.purchasesCreated.Inc() }

func (m *PrometheusMetrics) RemindersScheduled(n int) { m.remindersScheduled.Add(float64(n)) }

func (m *PrometheusMetrics) SchedulingFailed() { m.schedulingFailures.Inc() }

func (m *PrometheusMetrics) ReminderProcessed(outcome port.Outcome) {
	m.remindersProcessed.WithLabelValues(string(outcome)).Inc()
}

func (m *PrometheusMetrics) SweepCompleted(elapsed time.Duration, fired int) {
	m.sweepDuration.Observe(elapsed.Seconds())
	m.sweepFired.Add(float64(fired))
}
