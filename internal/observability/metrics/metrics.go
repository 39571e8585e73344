package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters/histograms for the agent request pipeline.
type GatewayMetrics struct {
	requestsTotal    *prometheus.CounterVec
	llmAttemptsTotal *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgw",
			Subsystem: "agent",
			Name:      "requests_total",
			Help:      "Total processed agent requests by outcome",
		}, []string{"outcome"}),
		llmAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgw",
			Subsystem: "llm",
			Name:      "attempts_total",
			Help:      "Total upstream completion attempts by result",
		}, []string{"result"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentgw",
			Subsystem: "llm",
			Name:      "attempt_duration_seconds",
			Help:      "Latency of individual upstream completion attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.llmAttemptsTotal, m.llmLatency)
	return m
}

func (m *GatewayMetrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

func (m *GatewayMetrics) ObserveLLMAttempt(result string) {
	if m == nil {
		return
	}
	m.llmAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *GatewayMetrics) ObserveLLMLatency(model string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(model).Observe(seconds)
}
