package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for discovery, the offline cache and favorites.
type Metrics struct {
	// Fetch cycle metrics.
	FetchCycles      *prometheus.CounterVec // labels: outcome={remote_ok,remote_empty,remote_error,fallback_error}
	FetchBusy        prometheus.Counter
	FetchDuration    prometheus.Histogram
	BatchRecords     prometheus.Histogram
	LocationFallback prometheus.Counter

	// Overpass metrics.
	OverpassRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	OverpassDuration prometheus.Histogram

	// Offline cache metrics.
	CacheLookups  *prometheus.CounterVec // labels: strategy={network_first,cache_first}, result={hit,miss,network,offline_page}
	InstallAssets *prometheus.CounterVec // labels: result={cached,skipped}

	// Favorites metrics.
	FavoriteToggles *prometheus.CounterVec // labels: action={added,removed}
}

// NewMetrics creates and registers all collectors with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchCycles,
		m.FetchBusy,
		m.FetchDuration,
		m.BatchRecords,
		m.LocationFallback,
		m.OverpassRequests,
		m.OverpassDuration,
		m.CacheLookups,
		m.InstallAssets,
		m.FavoriteToggles,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "fetch_cycles_total",
			Help:      "Completed fetch cycles by data outcome.",
		}, []string{"outcome"}),
		FetchBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "fetch_busy_total",
			Help:      "Fetch requests dropped because a cycle was already in flight.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pukaar",
			Name:      "fetch_cycle_duration_seconds",
			Help:      "Duration of a complete fetch cycle from location to ranking.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BatchRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pukaar",
			Name:      "batch_records",
			Help:      "Normalized records per fetch cycle.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		LocationFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "location_fallback_total",
			Help:      "Fetch cycles that used the default reference point.",
		}),
		OverpassRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "overpass_requests_total",
			Help:      "Overpass API requests by outcome.",
		}, []string{"outcome"}),
		OverpassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pukaar",
			Name:      "overpass_request_duration_seconds",
			Help:      "Overpass API request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 35},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "offline_cache_lookups_total",
			Help:      "Intercepted requests by routing strategy and how they were served.",
		}, []string{"strategy", "result"}),
		InstallAssets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "offline_install_assets_total",
			Help:      "Manifest assets processed during install by result.",
		}, []string{"result"}),
		FavoriteToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pukaar",
			Name:      "favorite_toggles_total",
			Help:      "Favorite toggles by resulting action.",
		}, []string{"action"}),
	}
}
