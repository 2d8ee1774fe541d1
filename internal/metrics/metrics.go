// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェア、Cognitoゲートウェイ、登録サーガ、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordProviderCall(operation string, duration time.Duration, err error)
	RecordCompensation(step string, success bool)
	RecordChatsDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	compensations   *prometheus.CounterVec
	chatsDeleted    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragapi_http_requests_total",
			Help: "HTTPリクエスト数（メソッド・ルート・ステータスコード別）",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragapi_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragapi_provider_calls_total",
			Help: "Cognito呼び出し数（操作・結果別）",
		}, []string{"operation", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragapi_provider_call_duration_seconds",
			Help:    "Cognito呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragapi_saga_compensations_total",
			Help: "ユーザー登録失敗時に実行された補償処理の数",
		}, []string{"step", "outcome"}),
		chatsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragapi_chats_deleted_total",
			Help: "保持期間切れで削除されたチャットの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.providerCalls,
		c.providerLatency,
		c.compensations,
		c.chatsDeleted,
	)

	return c
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordProviderCall はCognito呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordProviderCall(operation string, duration time.Duration, err error) {
	c.providerCalls.WithLabelValues(operation, outcome(err == nil)).Inc()
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCompensation は補償処理の実行結果を記録する。
func (c *Collector) RecordCompensation(step string, success bool) {
	c.compensations.WithLabelValues(step, outcome(success)).Inc()
}

// RecordChatsDeleted はクリーンアップで削除されたチャット数を記録する。
func (c *Collector) RecordChatsDeleted(count int64) {
	c.chatsDeleted.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordProviderCall(string, time.Duration, error) {}
func (Nop) RecordCompensation(string, bool) {}
func (Nop) RecordChatsDeleted(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
