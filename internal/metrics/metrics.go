// metrics — Prometheus-метрики locations-gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "locations_gateway"

// Metrics — набор коллекторов шлюза.
type Metrics struct {
	// UpstreamRequests — исходящие HTTP-запросы к marketplace API (code, method).
	UpstreamRequests *prometheus.CounterVec
	// UpstreamDuration — длительность исходящих запросов (code, method).
	UpstreamDuration *prometheus.HistogramVec
	// TreeFetches — загрузки страниц детей узлов дерева (level, outcome).
	TreeFetches *prometheus.CounterVec
	// SearchRequests — подзапросы поиска по уровням (level, outcome).
	SearchRequests *prometheus.CounterVec
	// Mutations — add/edit/delete/bulk_import (op, level, outcome).
	Mutations *prometheus.CounterVec
	// Sessions — активные сессии деревьев.
	Sessions prometheus.Gauge
}

// New создаёт коллекторы и регистрирует их в reg.
// reg == nil — коллекторы не регистрируются (удобно в тестах).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Outgoing requests to the marketplace API.",
		}, []string{"code", "method"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of outgoing requests to the marketplace API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		TreeFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "fetches_total",
			Help:      "Child page fetches issued by tree nodes.",
		}, []string{"level", "outcome"}),
		SearchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Per-level search sub-requests.",
		}, []string{"level", "outcome"}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locations",
			Name:      "mutations_total",
			Help:      "Add/edit/delete/bulk import operations forwarded upstream.",
		}, []string{"op", "level", "outcome"}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "sessions",
			Help:      "Admin sessions holding a loaded tree.",
		}),
	}
}

// Outcome — метка результата для счётчиков.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
