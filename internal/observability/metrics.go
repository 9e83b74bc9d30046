// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	TicksProcessed  prometheus.Counter
	SignalsEmitted  *prometheus.CounterVec
	OrdersPlaced    *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	TickErrors      prometheus.Counter

	// Strategy metrics
	GridRebalances prometheus.Counter
	GridLevels     prometheus.Gauge
	RealizedProfit prometheus.Gauge

	// Risk metrics
	RiskEventsTotal *prometheus.CounterVec
	TradingPaused   prometheus.Gauge
	CurrentDrawdown prometheus.Gauge

	// Market data metrics
	WSReconnects     prometheus.Counter
	WSMessageLatency prometheus.Histogram
	InfoCallLatency  *prometheus.HistogramVec

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  prometheus.Histogram
	TradesSimulated   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastTickTimestamp prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "grid_bot"
	}

	return &Metrics{
		// Engine metrics
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_processed_total",
			Help:      "Total number of price ticks processed",
		}),
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "signals_emitted_total",
			Help:      "Total number of strategy signals emitted by type",
		}, []string{"type"}),
		OrdersPlaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed by side",
		}, []string{"side"}),
		OrdersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled",
		}),
		TickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_errors_total",
			Help:      "Total number of price ticks that failed processing",
		}),

		// Strategy metrics
		GridRebalances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "grid_rebalances_total",
			Help:      "Total number of grid rebalances",
		}),
		GridLevels: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "grid_levels",
			Help:      "Current number of grid levels",
		}),
		RealizedProfit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "realized_profit_usd",
			Help:      "Realized profit booked by the strategy in USD",
		}),

		// Risk metrics
		RiskEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "events_total",
			Help:      "Total number of risk events by rule and action",
		}, []string{"rule", "action"}),
		TradingPaused: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "trading_paused",
			Help:      "1 when risk evaluation has paused trading",
		}),
		CurrentDrawdown: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "current_drawdown_pct",
			Help:      "Current account drawdown percentage",
		}),

		// Market data metrics
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		InfoCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "info_call_latency_seconds",
			Help:      "Info API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"request_type"}),

		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastTickTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_tick_timestamp",
			Help:      "Unix timestamp of the last processed price tick",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick increments the tick counter and stamps tick health.
func RecordTick(unixSeconds float64) {
	DefaultMetrics.TicksProcessed.Inc()
	DefaultMetrics.LastTickTimestamp.Set(unixSeconds)
}

// RecordSignal increments the signal counter for a signal type.
func RecordSignal(signalType string) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(signalType).Inc()
}

// RecordOrderPlaced increments the placed order counter for a side.
func RecordOrderPlaced(side string) {
	DefaultMetrics.OrdersPlaced.WithLabelValues(side).Inc()
}

// RecordRiskEvent records one fired risk rule.
func RecordRiskEvent(rule, action string) {
	DefaultMetrics.RiskEventsTotal.WithLabelValues(rule, action).Inc()
}

// SetTradingPaused updates the paused gauge.
func SetTradingPaused(paused bool) {
	if paused {
		DefaultMetrics.TradingPaused.Set(1)
		return
	}
	DefaultMetrics.TradingPaused.Set(0)
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordInfoCall records info API call latency.
func RecordInfoCall(requestType string, seconds float64) {
	DefaultMetrics.InfoCallLatency.WithLabelValues(requestType).Observe(seconds)
}

// RecordBacktestRun records one completed or failed backtest run.
func RecordBacktestRun(status string, durationSeconds float64, trades int) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BacktestDuration.Observe(durationSeconds)
	DefaultMetrics.TradesSimulated.Add(float64(trades))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
