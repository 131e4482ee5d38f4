package keycache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics tracks the narrow, in-process hit/miss counters for both the
// issuer-side public-key cache (C8) and the validator-side private-key cache
// (C10), grounded on the teacher's p2p/nonce_guard.go nonceGuardMetrics idiom:
// one process-wide registration behind a sync.Once, no HTTP exporter wiring.
type cacheMetrics struct {
	publicHits    prometheus.Counter
	publicMisses  prometheus.Counter
	privateHits   prometheus.Counter
	privateMisses prometheus.Counter
	evicted       prometheus.Counter
}

var (
	cacheMetricsOnce sync.Once
	cacheMetricsInst *cacheMetrics
)

func getCacheMetrics() *cacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetricsInst = &cacheMetrics{
			publicHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_keycache_public_hits_total",
				Help: "Public-key cache lookups that found a cached row.",
			}),
			publicMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_keycache_public_misses_total",
				Help: "Public-key cache lookups that found no cached row.",
			}),
			privateHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_keycache_private_hits_total",
				Help: "Private-key cache lookups that found a live cached row.",
			}),
			privateMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_keycache_private_misses_total",
				Help: "Private-key cache lookups that found no row, or an expired one.",
			}),
			evicted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_keycache_private_evicted_total",
				Help: "Private-key cache rows removed by a cleanup sweep.",
			}),
		}
		prometheus.MustRegister(
			cacheMetricsInst.publicHits, cacheMetricsInst.publicMisses,
			cacheMetricsInst.privateHits, cacheMetricsInst.privateMisses,
			cacheMetricsInst.evicted,
		)
	})
	return cacheMetricsInst
}

func (m *cacheMetrics) observePublic(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.publicHits.Inc()
		return
	}
	m.publicMisses.Inc()
}

func (m *cacheMetrics) observePrivate(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.privateHits.Inc()
		return
	}
	m.privateMisses.Inc()
}

func (m *cacheMetrics) observeEvicted(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.evicted.Add(float64(count))
}
