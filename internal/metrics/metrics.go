// Package metrics expone la instrumentación Prometheus del bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScanCycles cuenta los ciclos de scan completados.
	ScanCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polytrend_scan_cycles_total",
		Help: "Completed scan cycles",
	})

	// CycleDuration mide la duración del ciclo de scan.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polytrend_scan_cycle_duration_seconds",
		Help:    "Scan cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// OpenPositions es el número de posiciones abiertas.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polytrend_open_positions",
		Help: "Currently open positions",
	})

	// CapitalTotal y CapitalAvailable siguen las cifras del ledger.
	CapitalTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polytrend_capital_total",
		Help: "Total marked capital",
	})
	CapitalAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polytrend_capital_available",
		Help: "Capital not allocated to open positions",
	})

	// PositionsClosed cuenta cierres y parciales por status.
	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polytrend_positions_closed_total",
		Help: "History records appended, partitioned by status",
	}, []string{"status"})

	// QuoteFailures cuenta fallos por fuente de precios.
	QuoteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polytrend_quote_failures_total",
		Help: "Quote fetch failures by source",
	}, []string{"source"})

	// TrackedMarkets es el número de mercados con historial de trend vivo.
	TrackedMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polytrend_tracked_markets",
		Help: "Markets with live trend history",
	})

	// WorkerRestarts cuenta los reinicios del price worker por el watchdog.
	WorkerRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polytrend_price_worker_restarts_total",
		Help: "Price worker restarts triggered by the watchdog",
	})
)

// Handler devuelve el HTTP handler de Prometheus para /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
