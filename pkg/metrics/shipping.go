package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rate source outcomes.
const (
	OutcomeLive             = "live"
	OutcomeUnconfigured     = "unconfigured"
	OutcomeTimeout          = "timeout"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeEmpty            = "empty"
	OutcomeCurrencyMismatch = "currency_mismatch"
)

// ShippingMetrics records quote pipeline behavior.
type ShippingMetrics struct {
	quotes       *prometheus.CounterVec
	rateSource   *prometheus.CounterVec
	liveDuration *prometheus.HistogramVec
}

// NewShippingMetrics registers the shipping collectors on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewShippingMetrics(reg prometheus.Registerer) *ShippingMetrics {
	if reg == nil {
		return &ShippingMetrics{}
	}
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_quotes_total",
		Help: "Shipping quote requests by result code.",
	}, []string{"result"})
	rateSource := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_rate_source_total",
		Help: "Rate lookups by the source that served them and the live call outcome.",
	}, []string{"source", "outcome"})
	liveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipping_live_rates_duration_seconds",
		Help:    "Latency of live carrier rate calls in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
	}, []string{"provider"})
	reg.MustRegister(quotes, rateSource, liveDuration)
	return &ShippingMetrics{
		quotes:       quotes,
		rateSource:   rateSource,
		liveDuration: liveDuration,
	}
}

// IncQuote counts a finished quote request; result is "ok" or an error code.
func (m *ShippingMetrics) IncQuote(result string) {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncRateSource counts which source (live or fallback) served a lookup.
func (m *ShippingMetrics) IncRateSource(source, outcome string) {
	if m == nil || m.rateSource == nil {
		return
	}
	m.rateSource.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// ObserveLive records the latency of a live carrier call.
func (m *ShippingMetrics) ObserveLive(provider string, duration time.Duration) {
	if m == nil || m.liveDuration == nil {
		return
	}
	m.liveDuration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
