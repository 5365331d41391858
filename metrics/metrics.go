// Package metrics exposes Prometheus collectors for the sync pipeline and
// the stored row counts.
package metrics

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "gasolineras_"

var (
	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "sync_runs_total",
			Help: "Completed sync cycles by outcome",
		},
		[]string{"outcome"},
	)

	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "sync_duration_seconds",
			Help:    "Duration of sync cycles",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	lastInserted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metricPrefix + "sync_last_inserted",
			Help: "Stations inserted by the most recent successful sync",
		},
	)
)

func init() {
	prometheus.MustRegister(syncRuns, syncDuration, lastInserted)
}

// ObserveSync records the outcome of one sync cycle.
func ObserveSync(err error, inserted int64, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	syncRuns.WithLabelValues(outcome).Inc()
	syncDuration.Observe(elapsed.Seconds())
	if err == nil {
		lastInserted.Set(float64(inserted))
	}
}

// RowCounter is the read surface needed for row-count gauges.
type RowCounter interface {
	CountStations(ctx context.Context) (int64, error)
	CountHistory(ctx context.Context) (int64, error)
}

// RegisterRowGauges registers gauges backed by live SQL counts.
func RegisterRowGauges(counts RowCounter) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "stations_total",
			Help: "Rows in the live station dataset",
		},
		func() float64 { return queryCount(counts.CountStations) },
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "price_history_total",
			Help: "Rows in the price history collection",
		},
		func() float64 { return queryCount(counts.CountHistory) },
	))
}

func queryCount(count func(ctx context.Context) (int64, error)) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := count(ctx)
	if err != nil {
		log.Printf("metrics: count query failed: %v", err)
		return 0
	}
	return float64(n)
}
