package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PolygonMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mspo_polygon_mutations_total",
		Help: "Polygon create/update/delete operations by result",
	}, []string{"op", "result"})
	ImportFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mspo_import_features_total",
		Help: "GeoJSON features processed by the import endpoint",
	}, []string{"result"})
	ForestLayerMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mspo_forest_layer_mutations_total",
		Help: "Forest layer create/update/delete operations",
	}, []string{"op"})
	SearchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mspo_search_requests_total",
		Help: "Location searches by outcome (ok, cache_hit, unavailable)",
	}, []string{"result"})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mspo_search_duration_ms",
		Help:    "Upstream geocoder call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
)

func init() {
	prometheus.MustRegister(PolygonMutationsTotal)
	prometheus.MustRegister(ImportFeaturesTotal)
	prometheus.MustRegister(ForestLayerMutationsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDurationMs)
}

// Handler serves the registered metrics for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
