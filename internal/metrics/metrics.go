// Package metrics Prometheus метрики сервиса бронирования.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	BookingOps      *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter
}

// NewCollector регистрирует метрики в reg (prometheus.DefaultRegisterer в проде)
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		BookingOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking coordinator operations by operation and outcome.",
		}, []string{"operation", "outcome"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Range cache lookups by result (hit or miss).",
		}, []string{"result"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events exported by kind.",
		}, []string{"kind"}),

		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Domain events dropped because the export buffer was full or the broker failed.",
		}),
	}
}

// ObserveBooking считает операцию координатора. Безопасен для nil.
func (c *Collector) ObserveBooking(operation, outcome string) {
	if c == nil {
		return
	}
	c.BookingOps.WithLabelValues(operation, outcome).Inc()
}

// ObserveCacheLookup подходит как cache.Options.OnLookup. Безопасен для nil.
func (c *Collector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveEventPublished безопасен для nil
func (c *Collector) ObserveEventPublished(kind string) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(kind).Inc()
}

// ObserveEventDropped безопасен для nil
func (c *Collector) ObserveEventDropped() {
	if c == nil {
		return
	}
	c.EventsDropped.Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
