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
// ハンドラーとプロバイダアダプタから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordEntityOperation(entity, operation string)
	RecordEmailSent()
	RecordEmailFailed()
	RecordSlackSent()
	RecordSlackFailed()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	entityOps       *prometheus.CounterVec
	emailsSent      prometheus.Counter
	emailsFailed    prometheus.Counter
	slackSent       prometheus.Counter
	slackFailed     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crmdesk_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crmdesk_request_latency_seconds",
			Help:    "APIリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		entityOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crmdesk_entity_operations_total",
			Help: "エンティティ種別・操作別のCRUD操作数",
		}, []string{"entity", "operation"}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crmdesk_emails_sent_total",
			Help: "送信に成功したメールの合計数",
		}),
		emailsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crmdesk_emails_failed_total",
			Help: "送信に失敗したメールの合計数",
		}),
		slackSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crmdesk_slack_messages_sent_total",
			Help: "送信に成功したSlackメッセージの合計数",
		}),
		slackFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crmdesk_slack_messages_failed_total",
			Help: "送信に失敗したSlackメッセージの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.entityOps,
		c.emailsSent,
		c.emailsFailed,
		c.slackSent,
		c.slackFailed,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordEntityOperation はエンティティのCRUD操作を記録する。
// entityは "client" または "deal"、operationは "create"/"update"/"delete"/"list"。
func (c *Collector) RecordEntityOperation(entity, operation string) {
	c.entityOps.WithLabelValues(entity, operation).Inc()
}

// RecordEmailSent はメール送信成功を記録する。
func (c *Collector) RecordEmailSent() {
	c.emailsSent.Inc()
}

// RecordEmailFailed はメール送信失敗を記録する。
func (c *Collector) RecordEmailFailed() {
	c.emailsFailed.Inc()
}

// RecordSlackSent はSlackメッセージ送信成功を記録する。
func (c *Collector) RecordSlackSent() {
	c.slackSent.Inc()
}

// RecordSlackFailed はSlackメッセージ送信失敗を記録する。
func (c *Collector) RecordSlackFailed() {
	c.slackFailed.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
