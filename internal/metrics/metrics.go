// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// ミドルウェアとサービス層から利用する。
type Recorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordWatchlistToggle(saved bool)
	RecordInvestment(amount float64)
	RecordUpload(kind, result string)
	RecordExternalFailure(service string)
	RecordSlugCollision()
	RecordTaxIDVerification(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	watchlistToggles *prometheus.CounterVec
	investments      prometheus.Counter
	pledgedAmount    prometheus.Counter
	uploads          *prometheus.CounterVec
	externalFailures *prometheus.CounterVec
	slugCollisions   prometheus.Counter
	taxIDChecks      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venturex_http_requests_total",
			Help: "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venturex_http_request_duration_seconds",
			Help:    "ルート別のHTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		watchlistToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venturex_watchlist_toggles_total",
			Help: "トグル結果別のウォッチリスト操作数",
		}, []string{"result"}),
		investments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venturex_investments_created_total",
			Help: "作成された出資意向の合計数",
		}),
		pledgedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venturex_pledged_amount_total",
			Help: "出資意向金額の合計",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venturex_uploads_total",
			Help: "種別・結果別のCDNアップロード数",
		}, []string{"kind", "result"}),
		externalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venturex_external_failures_total",
			Help: "外部サービス別の呼び出し失敗数",
		}, []string{"service"}),
		slugCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venturex_slug_collisions_total",
			Help: "他のキャンペーンと重複したスラッグの保存数",
		}),
		taxIDChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venturex_taxid_verifications_total",
			Help: "結果別の税番号検証数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.watchlistToggles,
		c.investments,
		c.pledgedAmount,
		c.uploads,
		c.externalFailures,
		c.slugCollisions,
		c.taxIDChecks,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordWatchlistToggle はトグル後の状態を記録する。
func (c *Collector) RecordWatchlistToggle(saved bool) {
	result := "removed"
	if saved {
		result = "saved"
	}
	c.watchlistToggles.WithLabelValues(result).Inc()
}

// RecordInvestment は出資意向の作成を記録する。
func (c *Collector) RecordInvestment(amount float64) {
	c.investments.Inc()
	c.pledgedAmount.Add(amount)
}

// RecordUpload はアップロード結果を記録する。
func (c *Collector) RecordUpload(kind, result string) {
	c.uploads.WithLabelValues(kind, result).Inc()
}

// RecordExternalFailure は外部サービス呼び出しの失敗を記録する。
func (c *Collector) RecordExternalFailure(service string) {
	c.externalFailures.WithLabelValues(service).Inc()
}

// RecordSlugCollision はスラッグ重複を記録する。
func (c *Collector) RecordSlugCollision() {
	c.slugCollisions.Inc()
}

// RecordTaxIDVerification は税番号検証の結果を記録する。
func (c *Collector) RecordTaxIDVerification(result string) {
	c.taxIDChecks.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
