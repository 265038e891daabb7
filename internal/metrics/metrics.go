package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LocationSamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_location_samples_total",
		Help: "Location samples delivered to subscribers by source",
	}, []string{"source"})
	LocationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_location_errors_total",
		Help: "Positioning errors by kind",
	}, []string{"kind"})
	EvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fishguard_evaluations_total",
		Help: "Total compliance evaluations",
	})
	EvaluationDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fishguard_evaluation_duration_ms",
		Help:    "Compliance evaluation duration in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50},
	})
	NonCompliantTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fishguard_noncompliant_evaluations_total",
		Help: "Evaluations with at least one violation",
	})
	AlertsAdmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_alerts_admitted_total",
		Help: "Alerts admitted to the live list by severity",
	}, []string{"severity"})
	AlertsDedupedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_alerts_deduped_total",
		Help: "Alerts dropped as duplicates by severity",
	}, []string{"severity"})
	AlertsResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_alerts_resolved_total",
		Help: "Alerts resolved by cause (manual, expired, evicted)",
	}, []string{"cause"})
	LiveAlerts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fishguard_live_alerts",
		Help: "Current number of live alerts",
	})
	ZoneCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fishguard_zone_cell_cache_hits_total",
		Help: "Zone candidate cache hits",
	})
	ZoneCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fishguard_zone_cell_cache_misses_total",
		Help: "Zone candidate cache misses",
	})
	EmergencyBroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_emergency_broadcasts_total",
		Help: "Emergency bundles built by status",
	}, []string{"status"})
	SinkErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fishguard_sink_errors_total",
		Help: "Failures writing to external sinks (postgres, redis, kafka)",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(LocationSamplesTotal)
	prometheus.MustRegister(LocationErrorsTotal)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(EvaluationDurationMs)
	prometheus.MustRegister(NonCompliantTotal)
	prometheus.MustRegister(AlertsAdmittedTotal)
	prometheus.MustRegister(AlertsDedupedTotal)
	prometheus.MustRegister(AlertsResolvedTotal)
	prometheus.MustRegister(LiveAlerts)
	prometheus.MustRegister(ZoneCacheHitsTotal)
	prometheus.MustRegister(ZoneCacheMissesTotal)
	prometheus.MustRegister(EmergencyBroadcastsTotal)
	prometheus.MustRegister(SinkErrorsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
