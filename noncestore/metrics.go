package noncestore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// storeMetrics tracks the narrow, in-process counters the nonce store
// exposes, grounded on the teacher's p2p/nonce_guard.go nonceGuardMetrics:
// one process-wide registration behind a sync.Once, no HTTP exporter wiring.
type storeMetrics struct {
	claimed prometheus.Counter
	denied  prometheus.Counter
	pruned  prometheus.Counter
}

var (
	storeMetricsOnce sync.Once
	storeMetricsInst *storeMetrics
)

func getStoreMetrics() *storeMetrics {
	storeMetricsOnce.Do(func() {
		storeMetricsInst = &storeMetrics{
			claimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_noncestore_claims_total",
				Help: "Number of nonce claims accepted as first-use.",
			}),
			denied: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_noncestore_duplicate_total",
				Help: "Number of nonce claims rejected as a duplicate (replay).",
			}),
			pruned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "actrix_noncestore_pruned_total",
				Help: "Number of expired nonce records removed by Prune.",
			}),
		}
		prometheus.MustRegister(storeMetricsInst.claimed, storeMetricsInst.denied, storeMetricsInst.pruned)
	})
	return storeMetricsInst
}

func (m *storeMetrics) observeClaim(duplicate bool) {
	if m == nil {
		return
	}
	if duplicate {
		m.denied.Inc()
		return
	}
	m.claimed.Inc()
}

func (m *storeMetrics) observePruned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.pruned.Add(float64(count))
}
