package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reminder system.
type Metrics struct {
	// RemindersSentTotal is the total number of reminders sent by status.
	RemindersSentTotal *prometheus.CounterVec

	// RemindersDue is the number of due reminders found per scan.
	RemindersDue prometheus.Gauge

	// ReminderSendDuration is the time to send one reminder.
	ReminderSendDuration prometheus.Histogram

	// RateLimitWaits is the total number of rate limit waits.
	RateLimitWaits prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for reminders.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RemindersSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_sent_total",
				Help:      "Total number of reminders sent",
			},
			[]string{"status"},
		),

		RemindersDue: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reminders_due",
				Help:      "Number of due reminders found in the last scan",
			},
		),

		ReminderSendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reminder_send_duration_seconds",
				Help:      "Time to send a reminder",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
			},
		),

		RateLimitWaits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_rate_limit_waits_total",
				Help:      "Total number of rate limit waits",
			},
		),
	}
}

// IncSent increments the sent counter for a given status.
func (m *Metrics) IncSent(status string) {
	if m == nil {
		return
	}
	m.RemindersSentTotal.WithLabelValues(status).Inc()
}

// SetDue records the due reminder count for the last scan.
func (m *Metrics) SetDue(n int) {
	if m == nil {
		return
	}
	m.RemindersDue.Set(float64(n))
}

// ObserveSendDuration records the time taken to send a reminder.
func (m *Metrics) ObserveSendDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ReminderSendDuration.Observe(seconds)
}

// IncRateLimitWaits increments the rate limit wait counter.
func (m *Metrics) IncRateLimitWaits() {
	if m == nil {
		return
	}
	m.RateLimitWaits.Inc()
}
