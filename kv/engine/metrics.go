package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	taskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamkv",
			Subsystem: "engine",
			Name:      "tasks_total",
			Help:      "Counter of executed tasks.",
		}, []string{"kind", "result"})

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streamkv",
			Subsystem: "engine",
			Name:      "task_duration_seconds",
			Help:      "Bucketed histogram of task execution time (s).",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 20),
		}, []string{"kind"})

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "streamkv",
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Number of tasks waiting in the queue.",
		})
)

func init() {
	prometheus.MustRegister(taskCounter)
	prometheus.MustRegister(taskDuration)
	prometheus.MustRegister(queueDepth)
}
