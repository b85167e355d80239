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
// サービス層やハンドラー層から利用する。
type MetricsCollector interface {
	RecordGenerationSuccess(kind string)
	RecordGenerationFailure(kind string, reason string)
	RecordMediaFetchStatus(statusCode int)
	RecordMediaFetchLatency(duration time.Duration)
	RecordCreationsSaved(count int)
	RecordStorageFailure(op string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	generationSuccess *prometheus.CounterVec
	generationFail    *prometheus.CounterVec
	mediaFetchStatus  *prometheus.CounterVec
	mediaFetchLatency prometheus.Histogram
	creationsSaved    prometheus.Counter
	storageFail       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generationSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_generation_success_total",
			Help: "AI生成成功の合計数（種別ラベル付き）",
		}, []string{"kind"}),
		generationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_generation_fail_total",
			Help: "AI生成失敗の合計数（種別・理由ラベル付き）",
		}, []string{"kind", "reason"}),
		mediaFetchStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_media_fetch_status_total",
			Help: "外部画像取得のHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		mediaFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atelier_media_fetch_latency_seconds",
			Help:    "外部画像取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		creationsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atelier_creations_saved_total",
			Help: "保存された生成物の合計数",
		}),
		storageFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_storage_fail_total",
			Help: "ストア操作失敗の合計数（操作ラベル付き）",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.generationSuccess,
		c.generationFail,
		c.mediaFetchStatus,
		c.mediaFetchLatency,
		c.creationsSaved,
		c.storageFail,
	)

	return c
}

// RecordGenerationSuccess はAI生成成功を記録する。
func (c *Collector) RecordGenerationSuccess(kind string) {
	c.generationSuccess.WithLabelValues(kind).Inc()
}

// RecordGenerationFailure はAI生成失敗を記録する。
func (c *Collector) RecordGenerationFailure(kind string, reason string) {
	c.generationFail.WithLabelValues(kind, reason).Inc()
}

// RecordMediaFetchStatus は外部画像取得のHTTPステータスコードを記録する。
func (c *Collector) RecordMediaFetchStatus(statusCode int) {
	c.mediaFetchStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordMediaFetchLatency は外部画像取得のレイテンシを記録する。
func (c *Collector) RecordMediaFetchLatency(duration time.Duration) {
	c.mediaFetchLatency.Observe(duration.Seconds())
}

// RecordCreationsSaved は保存された生成物数を記録する。
func (c *Collector) RecordCreationsSaved(count int) {
	c.creationsSaved.Add(float64(count))
}

// RecordStorageFailure はストア操作の失敗を記録する。
func (c *Collector) RecordStorageFailure(op string) {
	c.storageFail.WithLabelValues(op).Inc()
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
