// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FeedMetricsRecorder はフィード合成のメトリクス収集インターフェース。
// サービス層から利用する。
type FeedMetricsRecorder interface {
	RecordFeedPage(mode string, duration time.Duration)
	RecordPostsServed(count int)
	RecordEnrichmentDegraded(lookup string)
	RecordStoreError()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	feedPages          *prometheus.CounterVec
	feedPageLatency    prometheus.Histogram
	postsServed        prometheus.Counter
	enrichmentDegraded *prometheus.CounterVec
	storeErrors        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shikujiri_feed_pages_total",
			Help: "配信したフィードページのランキングモード別合計数",
		}, []string{"mode"}),
		feedPageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shikujiri_feed_page_latency_seconds",
			Help:    "フィードページ合成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		postsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shikujiri_posts_served_total",
			Help: "フィードで配信した投稿の合計数",
		}),
		enrichmentDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shikujiri_enrichment_degraded_total",
			Help: "空値へ縮退したエンリッチメントルックアップのルックアップ種別合計数",
		}, []string{"lookup"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shikujiri_store_errors_total",
			Help: "投稿ストア読み取り失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.feedPages,
		c.feedPageLatency,
		c.postsServed,
		c.enrichmentDegraded,
		c.storeErrors,
	)

	return c
}

// RecordFeedPage はフィードページ配信をランキングモード別に記録する。
func (c *Collector) RecordFeedPage(mode string, duration time.Duration) {
	c.feedPages.WithLabelValues(mode).Inc()
	c.feedPageLatency.Observe(duration.Seconds())
}

// RecordPostsServed は配信した投稿数を記録する。
func (c *Collector) RecordPostsServed(count int) {
	c.postsServed.Add(float64(count))
}

// RecordEnrichmentDegraded はルックアップの縮退をルックアップ種別ごとに記録する。
func (c *Collector) RecordEnrichmentDegraded(lookup string) {
	c.enrichmentDegraded.WithLabelValues(lookup).Inc()
}

// RecordStoreError は投稿ストアの読み取り失敗を記録する。
func (c *Collector) RecordStoreError() {
	c.storeErrors.Inc()
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
