package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeedPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "feed",
		Name:      "pages_total",
		Help:      "Feed page fetch attempts by mode and outcome.",
	}, []string{"mode", "outcome"})

	FeedSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "feed",
		Name:      "skipped_items_total",
		Help:      "Records dropped while resolving a page, by reason.",
	}, []string{"reason"})

	FeedPageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gallery",
		Subsystem: "feed",
		Name:      "page_duration_seconds",
		Help:      "Time to query and resolve one feed page.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "upload",
		Name:      "files_total",
		Help:      "Uploaded files by media kind and status.",
	}, []string{"kind", "status"})

	FeedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gallery",
		Subsystem: "feed",
		Name:      "websocket_sessions",
		Help:      "Open websocket feed sessions.",
	})
)

func Mode(admin bool) string {
	if admin {
		return "admin"
	}
	return "public"
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
