// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 天気プロバイダー呼び出しの操作名
const (
	OperationSearch  = "search"
	OperationWeather = "weather"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 天気クライアント、HTTPミドルウェア、ハンドラーから利用する。
type MetricsCollector interface {
	RecordProviderRequest(operation string, success bool)
	RecordProviderLatency(operation string, duration time.Duration)
	RecordProviderStatus(statusCode int)
	RecordHTTPStatus(statusCode int)
	RecordSessionCreated()
	RecordRateLimited(limiter string)
	RecordRateLimiterEntries(limiter string, entries int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerStatus   *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	sessionsCreated  prometheus.Counter
	rateLimited      *prometheus.CounterVec
	limiterEntries   *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_tracker_provider_requests_total",
			Help: "天気プロバイダー呼び出しの合計数",
		}, []string{"operation", "result"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_tracker_provider_latency_seconds",
			Help:    "天気プロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		providerStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_tracker_provider_http_status_total",
			Help: "天気プロバイダーが返したHTTPステータスコード別の件数",
		}, []string{"status_code"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_tracker_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_tracker_sessions_created_total",
			Help: "発行されたセッションの合計数",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_tracker_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		}, []string{"limiter"}),
		limiterEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_tracker_rate_limiter_entries",
			Help: "レートリミッターが保持しているクライアントエントリ数",
		}, []string{"limiter"}),
	}

	reg.MustRegister(
		c.providerRequests,
		c.providerLatency,
		c.providerStatus,
		c.httpStatus,
		c.sessionsCreated,
		c.rateLimited,
		c.limiterEntries,
	)

	return c
}

// RecordProviderRequest は天気プロバイダー呼び出しの成否を記録する。
func (c *Collector) RecordProviderRequest(operation string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.providerRequests.WithLabelValues(operation, result).Inc()
}

// RecordProviderLatency は天気プロバイダー呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(operation string, duration time.Duration) {
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordProviderStatus は天気プロバイダーのHTTPステータスコードを記録する。
func (c *Collector) RecordProviderStatus(statusCode int) {
	c.providerStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPStatus はAPIレスポンスのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionCreated はセッション発行を記録する。
func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limiter string) {
	c.rateLimited.WithLabelValues(limiter).Inc()
}

// RecordRateLimiterEntries はレートリミッターの現在のエントリ数を記録する。
func (c *Collector) RecordRateLimiterEntries(limiter string, entries int) {
	c.limiterEntries.WithLabelValues(limiter).Set(float64(entries))
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordProviderRequest(string, bool) {}
func (NopCollector) RecordProviderLatency(string, time.Duration) {}
func (NopCollector) RecordProviderStatus(int) {}
func (NopCollector) RecordHTTPStatus(int) {}
func (NopCollector) RecordSessionCreated() {}
func (NopCollector) RecordRateLimited(string) {}
func (NopCollector) RecordRateLimiterEntries(string, int) {}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
