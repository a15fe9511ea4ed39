// Package metrics содержит счётчики Prometheus для операций кредитного журнала.
// Все методы безопасно вызывать на nil-получателе.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics набор счётчиков движка кредитов.
type Metrics struct {
	consumed     *prometheus.CounterVec
	refunded     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	insufficient prometheus.Counter
	allocated    *prometheus.CounterVec
	expired      *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credits",
			Name:      "consumed_total",
			Help:      "Credits consumed, by source kind.",
		}, []string{"source"}),
		refunded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credits",
			Name:      "refunded_total",
			Help:      "Credits refunded to their original source, by source kind.",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credits",
			Name:      "refund_rejected_total",
			Help:      "Refund attempts rejected by the engine, by reason.",
		}, []string{"reason"}),
		insufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "credits",
			Name:      "insufficient_total",
			Help:      "Consume calls rejected for lack of credits.",
		}),
		allocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credits",
			Name:      "allocated_total",
			Help:      "Credits allocated from confirmed payments, by product.",
		}, []string{"product"}),
		expired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credits",
			Name:      "expired_total",
			Help:      "Credits forfeited by the expiry sweeper, by source kind.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.consumed, m.refunded, m.rejected, m.insufficient, m.allocated, m.expired)
	return m
}

func (m *Metrics) Consumed(source string) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(source).Inc()
}

func (m *Metrics) Refunded(source string) {
	if m == nil {
		return
	}
	m.refunded.WithLabelValues(source).Inc()
}

func (m *Metrics) RefundRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Insufficient() {
	if m == nil {
		return
	}
	m.insufficient.Inc()
}

func (m *Metrics) Allocated(product string, credits int) {
	if m == nil {
		return
	}
	m.allocated.WithLabelValues(product).Add(float64(credits))
}

func (m *Metrics) Expired(source string, credits int) {
	if m == nil {
		return
	}
	m.expired.WithLabelValues(source).Add(float64(credits))
}
