package importer

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unknownItemType labels records whose type is not registered.
const unknownItemType = "unknown"

type metrics struct {
	recordsTotal   *prometheus.CounterVec
	recordDuration *prometheus.HistogramVec
	extractedTotal *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		recordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etl",
			Subsystem: "importer",
			Name:      "records_total",
			Help:      "Total number of records pushed into the host.",
		}, []string{"itemtype", "result"}), // result: ok, failed
		recordDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "etl",
			Subsystem: "importer",
			Name:      "record_duration_seconds",
			Help:      "Time spent importing a single record.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"itemtype"}),
		extractedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etl",
			Subsystem: "extractor",
			Name:      "records_total",
			Help:      "Total number of records read back from the host.",
		}, []string{"itemtype"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func observeRecord(itemType string, ok bool, elapsed time.Duration) {
	m := getMetrics()
	itemType = strings.ToLower(itemType)
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.recordsTotal.WithLabelValues(itemType, result).Inc()
	m.recordDuration.WithLabelValues(itemType).Observe(elapsed.Seconds())
}

func observeExtracted(itemType string, n int) {
	getMetrics().extractedTotal.WithLabelValues(strings.ToLower(itemType)).Add(float64(n))
}
