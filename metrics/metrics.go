package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 习惯数据变更计数
	StoreMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_store_mutations_total",
			Help: "Total number of habit store mutations",
		},
		[]string{"operation", "result"}, // result: saved, unchanged, failed
	)

	// 保存失败计数
	StoreSaveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_store_save_failures_total",
			Help: "Total number of failed record saves",
		},
		[]string{"backend"},
	)

	// 加载回退到默认数据的次数
	StoreLoadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habit_store_load_fallbacks_total",
			Help: "Total number of loads that fell back to the default record",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordMutation 记录一次变更
func RecordMutation(operation, result string) {
	StoreMutations.WithLabelValues(operation, result).Inc()
}

// RecordSaveFailure 记录一次保存失败
func RecordSaveFailure(backend string) {
	StoreSaveFailures.WithLabelValues(backend).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求延迟
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
