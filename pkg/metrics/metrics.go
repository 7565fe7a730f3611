// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集文档管道、检索与归档的指标.
//
// Example:
//
//	import "github.com/yeisme/docuvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.DocumentsIngested.Inc()
//	metrics.ClassificationsTotal.WithLabelValues("rule").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/docuvault/pkg/configs"
)

// 全局指标变量.
var (
	// DocumentsIngested 入库文档计数.
	DocumentsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "Total number of documents ingested",
		},
	)

	// ClassificationsTotal 分类计数，按来源（rule/ml/none）.
	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Total number of classification decisions by source",
		},
		[]string{"source"},
	)

	// SearchesTotal 检索请求计数.
	SearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "searches_total",
			Help: "Total number of search requests",
		},
	)

	// SearchDuration 检索耗时.
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Federated search duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ArchiveRuns 归档迁移计数，按结果（ok/skipped/error）.
	ArchiveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_runs_total",
			Help: "Total number of archive migration runs by outcome",
		},
		[]string{"outcome"},
	)

	// RetrainRuns 再训练计数，按结果（ok/skipped/error）.
	RetrainRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrain_runs_total",
			Help: "Total number of classifier retrain runs by outcome",
		},
		[]string{"outcome"},
	)

	// PendingFeedback 未应用反馈数.
	PendingFeedback = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_feedback",
			Help: "Number of unapplied classification feedback records",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// 注册自定义指标
	registry.MustRegister(
		DocumentsIngested,
		ClassificationsTotal,
		SearchesTotal,
		SearchDuration,
		ArchiveRuns,
		RetrainRuns,
		PendingFeedback,
	)

	return nil
}

// StartMetricsServer 在调试引擎上挂载 /metrics（与 pprof）.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	debugEngine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if configs.GetConfig().Server.Debug {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// Registry 获取Prometheus注册表.
func Registry() *prometheus.Registry {
	return registry
}

// NewCounter 创建新的计数器指标.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	registry.MustRegister(counter)

	return counter
}

// NewGauge 创建新的仪表盘指标.
func NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	registry.MustRegister(gauge)

	return gauge
}

// NewHistogram 创建新的直方图指标.
func NewHistogram(name, help string, labels []string) *prometheus.HistogramVec {
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: prometheus.DefBuckets,
		},
		labels,
	)
	registry.MustRegister(histogram)

	return histogram
}
