package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/snapp-incubator/updatelog/internal/logging"
)

var buckets = []float64{
	0.005,
	0.01, // 10ms
	0.02,
	0.05,
	0.1, // 100 ms
	0.2,
	0.5,
	1.0, // 1s
	2.0,
	5.0,
	10.0, // 10s
	30.0,
}

var (
	RemoteReqCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatelog",
		Subsystem: "remote",
		Name:      "request_count",
		Help:      "Contents API request count",
	}, []string{"operation", "status"})

	RemoteReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "updatelog",
		Subsystem: "remote",
		Name:      "request_duration",
		Help:      "Duration of each Contents API request",
		Buckets:   buckets,
	}, []string{"operation"})

	CacheOpCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatelog",
		Subsystem: "cache",
		Name:      "operation_count",
		Help:      "Local cache store operations",
	}, []string{"operation", "result"})

	FallbackCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "updatelog",
		Subsystem: "adapter",
		Name:      "fallback_count",
		Help:      "Operations that degraded to the local cache",
	}, []string{"operation"})
)

// Result labels an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registered collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InitializeHTTP serves the metrics on bind until the server fails.
func InitializeHTTP(bind string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := http.Server{
		Addr:    bind,
		Handler: mux,
	}
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.L.Error("error in metrics server ListenAndServe", zap.Error(err))
	}
}
