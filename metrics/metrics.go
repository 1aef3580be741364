package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageCacheRequests counts anonymous page cache lookups by result (hit or miss).
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_page_cache_requests_total",
		Help: "Anonymous page cache lookups by result.",
	}, []string{"result"})

	// HTTPRequests counts served requests by route pattern, method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// Writes counts successful domain writes by kind (post, comment, follow, unfollow).
	Writes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_writes_total",
		Help: "Successful write operations by kind.",
	}, []string{"kind"})
)

// CacheHit records a page cache hit.
func CacheHit() { PageCacheRequests.WithLabelValues("hit").Inc() }

// CacheMiss records a page cache miss.
func CacheMiss() { PageCacheRequests.WithLabelValues("miss").Inc() }
