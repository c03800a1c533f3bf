package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var Observer = &Metrics{
	mutex:      new(sync.RWMutex),
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(
		Observer.prometheus.Ticks,
		Observer.prometheus.Trades,
		Observer.prometheus.Errors,
		Observer.prometheus.Balance,
	)
}

type Metrics struct {
	mutex      *sync.RWMutex
	prometheus Prometheus
}

// IncrementTicks counts one processed tick for the (coin, period) pair.
func (m *Metrics) IncrementTicks(labels ...string) {
	m.prometheus.Ticks.WithLabelValues(labels...).Inc()
}

// IncrementTrades counts one trade event for (coin, side, event).
func (m *Metrics) IncrementTrades(labels ...string) {
	m.prometheus.Trades.WithLabelValues(labels...).Inc()
}

// IncrementErrors counts one error for (coin, op).
func (m *Metrics) IncrementErrors(labels ...string) {
	m.prometheus.Errors.WithLabelValues(labels...).Inc()
}

// SetBalance tracks the margin account balance per coin.
func (m *Metrics) SetBalance(coin string, balance float64) {
	m.prometheus.Balance.WithLabelValues(coin).Set(balance)
}
