package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "timegrid",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	schedulesBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "timegrid",
			Name:      "schedules_built_total",
			Help:      "Count of daily schedules built by outcome.",
		},
		[]string{"outcome"},
	)

	scheduleCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "timegrid",
			Name:      "schedule_cache_total",
			Help:      "Schedule cache lookups by result.",
		},
		[]string{"result"},
	)

	appointmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "timegrid",
			Name:      "appointments_created_total",
			Help:      "Count of appointments created through the API.",
		},
	)

	appointmentsCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "timegrid",
			Name:      "appointments_canceled_total",
			Help:      "Count of appointments canceled through the API.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, schedulesBuilt, scheduleCache, appointmentsCreated, appointmentsCanceled)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncScheduleBuilt(outcome string) {
	schedulesBuilt.WithLabelValues(outcome).Inc()
}

func IncCacheHit() {
	scheduleCache.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	scheduleCache.WithLabelValues("miss").Inc()
}

func IncAppointmentCreated() {
	appointmentsCreated.Inc()
}

func IncAppointmentCanceled() {
	appointmentsCanceled.Inc()
}
