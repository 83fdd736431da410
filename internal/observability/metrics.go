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
	// Pipeline metrics
	PhaseRunsTotal *prometheus.CounterVec
	PhaseDuration  *prometheus.HistogramVec
	TicksSkipped   prometheus.Counter

	// Revenue metrics
	SolBallsSwapped prometheus.Counter
	USDCReceived    prometheus.Counter
	SplitAmount     *prometheus.CounterVec

	// Replenishment metrics
	PacksPurchased  prometheus.Counter
	AssetsDeposited prometheus.Counter
	VaultFill       prometheus.Gauge

	// Spawn metrics
	SpawnActions    *prometheus.CounterVec
	CentralEntities prometheus.Gauge
	ActiveEntities  prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	HTTPAPILatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccess *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pokeball_ops"
	}

	return &Metrics{
		// Pipeline metrics
		PhaseRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "phase_runs_total",
			Help:      "Total number of phase runs by status",
		}, []string{"phase", "status"}),
		PhaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "phase_duration_seconds",
			Help:      "Phase execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		TicksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ticks_skipped_total",
			Help:      "Ticks and manual triggers rejected because a run was in progress",
		}),

		// Revenue metrics
		SolBallsSwapped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "revenue",
			Name:      "solballs_swapped_atomic_total",
			Help:      "Total SolBalls (atomic units) withdrawn and swapped",
		}),
		USDCReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "revenue",
			Name:      "usdc_received_atomic_total",
			Help:      "Total USDC (atomic units) received from swaps",
		}),
		SplitAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "revenue",
			Name:      "split_atomic_total",
			Help:      "USDC (atomic units) allocated per split bucket",
		}, []string{"bucket"}),

		// Replenishment metrics
		PacksPurchased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replenish",
			Name:      "packs_purchased_total",
			Help:      "Total number of packs purchased",
		}),
		AssetsDeposited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replenish",
			Name:      "assets_deposited_total",
			Help:      "Total number of collectibles deposited into the vault",
		}),
		VaultFill: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replenish",
			Name:      "vault_fill",
			Help:      "Collectibles held in the vault at last check",
		}),

		// Spawn metrics
		SpawnActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spawn",
			Name:      "actions_total",
			Help:      "Total number of spawn actions by kind",
		}, []string{"action"}),
		CentralEntities: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spawn",
			Name:      "central_entities",
			Help:      "Active entities inside the central zone after the last check",
		}),
		ActiveEntities: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spawn",
			Name:      "active_entities",
			Help:      "Active entities on the map after the last check",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HTTPAPILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "api_latency_seconds",
			Help:      "External HTTP API latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),

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
		LastSuccess: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful run per activity",
		}, []string{"activity"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPhaseRun records a pipeline phase run.
func RecordPhaseRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PhaseRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PhaseDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordTickSkipped increments the skipped tick counter.
func RecordTickSkipped() {
	DefaultMetrics.TicksSkipped.Inc()
}

// RecordSwap records a completed revenue swap.
func RecordSwap(spent, received uint64) {
	DefaultMetrics.SolBallsSwapped.Add(float64(spent))
	DefaultMetrics.USDCReceived.Add(float64(received))
}

// RecordSplit records the bucket amounts of a split.
func RecordSplit(treasury, reserve, retained uint64) {
	DefaultMetrics.SplitAmount.WithLabelValues("treasury").Add(float64(treasury))
	DefaultMetrics.SplitAmount.WithLabelValues("reserve").Add(float64(reserve))
	DefaultMetrics.SplitAmount.WithLabelValues("retained").Add(float64(retained))
}

// RecordReplenishment records packs bought and assets deposited.
func RecordReplenishment(packs, deposited int) {
	DefaultMetrics.PacksPurchased.Add(float64(packs))
	DefaultMetrics.AssetsDeposited.Add(float64(deposited))
}

// UpdateVaultFill sets the vault fill gauge.
func UpdateVaultFill(count int) {
	DefaultMetrics.VaultFill.Set(float64(count))
}

// RecordSpawnCheck records the outcome of a spawn maintenance run.
func RecordSpawnCheck(spawned, repositioned, central, active int) {
	DefaultMetrics.SpawnActions.WithLabelValues("spawn").Add(float64(spawned))
	DefaultMetrics.SpawnActions.WithLabelValues("reposition").Add(float64(repositioned))
	DefaultMetrics.CentralEntities.Set(float64(central))
	DefaultMetrics.ActiveEntities.Set(float64(active))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordAPILatency records external HTTP API latency.
func RecordAPILatency(service string, seconds float64) {
	DefaultMetrics.HTTPAPILatency.WithLabelValues(service).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordLastSuccess sets the last-success gauge for activity.
func RecordLastSuccess(activity string, unixSeconds int64) {
	DefaultMetrics.LastSuccess.WithLabelValues(activity).Set(float64(unixSeconds))
}
