package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	Ticks   *prometheus.CounterVec
	Trades  *prometheus.CounterVec
	Errors  *prometheus.CounterVec
	Balance *prometheus.GaugeVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robot",
				Name:      "ticks",
			}, []string{"coin", "period"}),
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robot",
				Name:      "trades",
			}, []string{"coin", "side", "event"}),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robot",
				Name:      "errors",
			}, []string{"coin", "op"}),
		Balance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "robot",
				Name:      "balance",
			}, []string{"coin"}),
	}
}
