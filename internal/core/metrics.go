package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	grnsReceived       prometheus.Counter
	unitsReceived      prometheus.Counter
	returnsCreated     prometheus.Counter
	unitsReturned      prometheus.Counter
	entriesPosted      *prometheus.CounterVec
	unbalancedRejected prometheus.Counter
	txAborted          *prometheus.CounterVec
	txDuration         *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		grnsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger", Name: "grns_received_total",
			Help: "Goods receipt notes committed.",
		}),
		unitsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger", Name: "units_received_total",
			Help: "Units added to stock through goods receipts.",
		}),
		returnsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger", Name: "purchase_returns_total",
			Help: "Purchase returns committed.",
		}),
		unitsReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger", Name: "units_returned_total",
			Help: "Units consumed from stock by purchase returns.",
		}),
		entriesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger", Name: "journal_entries_posted_total",
			Help: "Journal entries posted, by reference type.",
		}, []string{"ref_type"}),
		unbalancedRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger", Name: "journal_entries_unbalanced_total",
			Help: "Journal entries rejected because debits and credits differ.",
		}),
		txAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger", Name: "transactions_aborted_total",
			Help: "Atomic operations rolled back, by operation.",
		}, []string{"op"}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger", Name: "transaction_duration_seconds",
			Help:    "Duration of atomic operations, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.grnsReceived, m.unitsReceived, m.returnsCreated, m.unitsReturned,
			m.entriesPosted, m.unbalancedRejected, m.txAborted, m.txDuration)
	}
	return m
}

func (m *Metrics) grnReceived(units int64) {
	if m == nil {
		return
	}
	m.grnsReceived.Inc()
	m.unitsReceived.Add(float64(units))
}

func (m *Metrics) returnCreated(units int64) {
	if m == nil {
		return
	}
	m.returnsCreated.Inc()
	m.unitsReturned.Add(float64(units))
}

func (m *Metrics) entryPosted(ref RefType) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(string(ref)).Inc()
}

func (m *Metrics) entryUnbalanced() {
	if m == nil {
		return
	}
	m.unbalancedRejected.Inc()
}

func (m *Metrics) txFinished(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.txAborted.WithLabelValues(op).Inc()
	}
}
