package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestShippingMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewShippingMetrics(reg)

	m.IncQuote("ok")
	m.IncQuote("ok")
	m.IncRateSource("fallback", OutcomeTimeout)
	m.ObserveLive("easypost", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "shipping_quotes_total", map[string]string{"result": "ok"}); err != nil {
		t.Fatalf("fetch quotes: %v", err)
	} else if got != 2 {
		t.Fatalf("expected quotes=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "shipping_rate_source_total", map[string]string{"source": "fallback", "outcome": OutcomeTimeout}); err != nil {
		t.Fatalf("fetch rate source: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rate source=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "shipping_live_rates_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected live duration histogram")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestNilShippingMetricsIsNoop(t *testing.T) {
	var m *ShippingMetrics
	m.IncQuote("ok")
	m.IncRateSource("live", OutcomeLive)
	m.ObserveLive("easypost", time.Second)

	NewShippingMetrics(nil).IncQuote("ok")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
