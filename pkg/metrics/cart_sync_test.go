package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartSyncMetrics(reg)
	op := "add"
	metrics.IncMutation(op)
	metrics.IncFailure(op)
	metrics.IncRollback(op)
	metrics.ObserveSettle(op, 250*time.Millisecond)
	metrics.SetQueueDepth(op, 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_mutations_total", "op", op); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected mutations=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_optimistic_rollbacks_total", "op", op); err != nil {
		t.Fatalf("fetch rollbacks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rollbacks=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "cart_mutation_settle_seconds", "op", op); err != nil {
		t.Fatalf("fetch settle: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected settle sum > 0, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "cart_mutation_queue_depth", "op", op); err != nil {
		t.Fatalf("fetch depth: %v", err)
	} else if got != 3 {
		t.Fatalf("expected depth=3, got %f", got)
	}
}

func TestCartSyncMetricsNilSafe(t *testing.T) {
	var metrics *CartSyncMetrics
	metrics.IncMutation("add")
	metrics.ObserveSettle("add", time.Second)

	empty := NewCartSyncMetrics(nil)
	empty.IncFailure("remove")
	empty.SetQueueDepth("update", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
