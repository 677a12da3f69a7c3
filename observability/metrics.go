package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records claim and query activity flowing through the HTTP
// gateway.
type GatewayMetrics struct {
	Requests *prometheus.CounterVec
	Claims   *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

var (
	gatewayOnce sync.Once
	gatewayReg  *GatewayMetrics
)

// Gateway returns the lazily-initialised gateway metrics registry.
func Gateway() *GatewayMetrics {
	gatewayOnce.Do(func() {
		gatewayReg = &GatewayMetrics{
			Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rewardhub",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rewardhub",
				Subsystem: "gateway",
				Name:      "claims_total",
				Help:      "Relayed claim submissions segmented by outcome.",
			}, []string{"outcome"}),
			Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "rewardhub",
				Subsystem: "gateway",
				Name:      "request_seconds",
				Help:      "Gateway request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(gatewayReg.Requests, gatewayReg.Claims, gatewayReg.Latency)
	})
	return gatewayReg
}

// Outcome normalises a result label for the counters.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
