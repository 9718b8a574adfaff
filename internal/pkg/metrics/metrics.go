package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttachmentsUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxos",
		Name:      "attachments_uploaded_total",
		Help:      "Temporary attachments stored in upload sessions.",
	})

	AttachmentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linuxos",
		Name:      "attachments_rejected_total",
		Help:      "Uploads rejected before storage, by reason.",
	}, []string{"reason"})

	AttachmentsPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxos",
		Name:      "attachments_promoted_total",
		Help:      "Temporary attachments moved to a permanent owner.",
	})

	UploadSessionsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxos",
		Name:      "upload_sessions_discarded_total",
		Help:      "Upload sessions removed together with their files.",
	})

	ArticleHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linuxos",
		Name:      "article_hits_total",
		Help:      "Article detail views.",
	})
)

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
