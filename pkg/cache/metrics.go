package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	stores        prometheus.Counter
	evictions     prometheus.Counter
	invalidations prometheus.Counter
}

func newMetrics(namespace string) *metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "info_cache",
			Name:      name,
			Help:      help,
		})
	}
	return &metrics{
		hits:          counter("hits_total", "Number of info cache lookups that found an entry."),
		misses:        counter("misses_total", "Number of info cache lookups that found nothing."),
		stores:        counter("stores_total", "Number of info objects stored."),
		evictions:     counter("evictions_total", "Number of entries dropped to stay within the size bound."),
		invalidations: counter("invalidations_total", "Number of entries removed by invalidation."),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.stores, m.evictions, m.invalidations} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
