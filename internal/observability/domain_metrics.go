package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menudash_query_cache_hits_total",
			Help: "Total number of query results served from the TTL cache.",
		},
	)
	queryCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menudash_query_cache_misses_total",
			Help: "Total number of queries that required a warehouse round-trip.",
		},
	)
	warehouseQuerySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menudash_warehouse_query_duration_seconds",
			Help:    "Warehouse query execution latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	warehouseQueryErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menudash_warehouse_query_errors_total",
			Help: "Total number of failed warehouse queries.",
		},
	)
	exportBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menudash_export_bytes_total",
			Help: "Total bytes of export payloads served, by format.",
		},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(
		queryCacheHitsTotal,
		queryCacheMissesTotal,
		warehouseQuerySeconds,
		warehouseQueryErrorsTotal,
		exportBytesTotal,
	)
}

func IncrementQueryCacheHit() {
	queryCacheHitsTotal.Inc()
}

func IncrementQueryCacheMiss() {
	queryCacheMissesTotal.Inc()
}

func ObserveWarehouseQuery(elapsed time.Duration, err error) {
	if err != nil {
		warehouseQueryErrorsTotal.Inc()
		return
	}
	warehouseQuerySeconds.Observe(elapsed.Seconds())
}

func AddExportBytes(format string, bytes int) {
	if bytes <= 0 {
		return
	}
	exportBytesTotal.WithLabelValues(format).Add(float64(bytes))
}
