package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/core/product"
)

const namespace = "recipe_discovery"

// Metrics 服務指標；每個實例有自己的 registry，測試可各自建立
type Metrics struct {
	registry *prometheus.Registry

	tierOutcomes      *prometheus.CounterVec
	tierDuration      *prometheus.HistogramVec
	discoveryDuration *prometheus.HistogramVec
	resolutions       *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

var _ discovery.Observer = (*Metrics)(nil)

// New 建立並註冊所有指標
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tierOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_outcomes_total",
			Help:      "Discovery tier runs by source and outcome.",
		}, []string{"source", "outcome"}),
		tierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tier_duration_seconds",
			Help:      "Time spent in a single discovery tier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		discoveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "End-to-end discovery latency by the source that produced the results.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_resolutions_total",
			Help:      "Product resolutions by method.",
		}, []string{"method"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Collaborator cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tierOutcomes,
		m.tierDuration,
		m.discoveryDuration,
		m.resolutions,
		m.cacheLookups,
		m.httpRequests,
	)
	return m
}

// ObserveTier 記錄單一層的結果
func (m *Metrics) ObserveTier(source domain.Source, outcome discovery.Outcome, elapsed time.Duration) {
	m.tierOutcomes.WithLabelValues(string(source), string(outcome)).Inc()
	m.tierDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// ObserveDiscovery 記錄整體耗時
func (m *Metrics) ObserveDiscovery(source domain.Source, elapsed time.Duration) {
	m.discoveryDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// ObserveResolution 給 product.WithObserver 使用
func (m *Metrics) ObserveResolution(method product.Method) {
	m.resolutions.WithLabelValues(string(method)).Inc()
}

// ObserveCache 給 cache.Wrap* 使用
func (m *Metrics) ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveRequest 記錄 HTTP 請求
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 測試用
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
