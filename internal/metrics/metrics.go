package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MidpointRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "midpoint_requests_total",
		Help: "Midpoint requests by outcome",
	}, []string{"outcome"})
	MidpointDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "midpoint_request_duration_ms",
		Help:    "Midpoint request duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	PlacesReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "midpoint_places_returned",
		Help:    "Number of ranked places returned per midpoint request",
		Buckets: []float64{0, 1, 5, 10, 15, 20},
	})
	CollaboratorRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "midpoint_collaborator_requests_total",
		Help: "Outbound collaborator calls by operation and status",
	}, []string{"operation", "status"})
	CollaboratorDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "midpoint_collaborator_duration_ms",
		Help:    "Outbound collaborator call duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"operation"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "midpoint_cache_hits_total",
		Help: "Cache hits by cache name",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "midpoint_cache_misses_total",
		Help: "Cache misses by cache name",
	}, []string{"cache"})
	DegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "midpoint_degraded_total",
		Help: "Requests answered with a fallback because a collaborator failed",
	}, []string{"collaborator"})
)

func init() {
	prometheus.MustRegister(MidpointRequestsTotal)
	prometheus.MustRegister(MidpointDurationMs)
	prometheus.MustRegister(PlacesReturned)
	prometheus.MustRegister(CollaboratorRequestsTotal)
	prometheus.MustRegister(CollaboratorDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(DegradedTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
