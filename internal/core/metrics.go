package core

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	filesTotal     *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
	bytesTotal     prometheus.Counter
	importDuration prometheus.Histogram
	activeImports  prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		filesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etl",
			Subsystem: "csvimport",
			Name:      "files_total",
			Help:      "Total number of CSV files imported.",
		}, []string{"result"}), // result: clean, partial
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etl",
			Subsystem: "csvimport",
			Name:      "rows_total",
			Help:      "Total number of CSV data rows processed.",
		}, []string{"result"}), // result: ok, failed
		bytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "etl",
			Subsystem: "csvimport",
			Name:      "bytes_total",
			Help:      "Total number of CSV bytes read, before charset decoding.",
		}),
		importDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "etl",
			Subsystem: "csvimport",
			Name:      "duration_seconds",
			Help:      "Time spent importing one CSV file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		activeImports: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "etl",
			Subsystem: "csvimport",
			Name:      "active",
			Help:      "Current number of running CSV imports.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func observeImport(rows, failed int, bytes int64, elapsed time.Duration) {
	m := getMetrics()
	result := "clean"
	if failed > 0 {
		result = "partial"
	}
	m.filesTotal.WithLabelValues(result).Inc()
	m.rowsTotal.WithLabelValues("ok").Add(float64(rows - failed))
	m.rowsTotal.WithLabelValues("failed").Add(float64(failed))
	m.bytesTotal.Add(float64(bytes))
	m.importDuration.Observe(elapsed.Seconds())
}

func setActiveImports(n int) {
	getMetrics().activeImports.Set(float64(n))
}
