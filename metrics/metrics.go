package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

const (
	MetricsNamespace = "playwright"

	CategoryLabel = "category"
)

// Fully-qualified metric names, in the order they are exported
const (
	TestsTotalName         = MetricsNamespace + "_tests_total"
	TestsPassedName        = MetricsNamespace + "_tests_passed"
	TestsFailedName        = MetricsNamespace + "_tests_failed"
	SuccessRateName        = MetricsNamespace + "_success_rate"
	AvgDurationName        = MetricsNamespace + "_avg_duration_ms"
	OverallSuccessRateName = MetricsNamespace + "_overall_success_rate"
	TotalTestCountName     = MetricsNamespace + "_total_test_count"
	ExecutionTimestampName = MetricsNamespace + "_test_execution_timestamp"
)

// exportOrder keeps the timestamp as the last exported family
var exportOrder = []string{
	TestsTotalName,
	TestsPassedName,
	TestsFailedName,
	SuccessRateName,
	AvgDurationName,
	OverallSuccessRateName,
	TotalTestCountName,
	ExecutionTimestampName,
}

// RunMetrics holds the gauges describing a single run. Each run gets its own
// registry so nothing leaks between runs or tests.
type RunMetrics struct {
	registry *prometheus.Registry

	testsTotal         *prometheus.GaugeVec
	testsPassed        *prometheus.GaugeVec
	testsFailed        *prometheus.GaugeVec
	successRate        *prometheus.GaugeVec
	avgDuration        *prometheus.GaugeVec
	overallSuccessRate prometheus.Gauge
	totalTestCount     prometheus.Gauge
	executionTimestamp prometheus.Gauge
}

// NewRunMetrics registers the run gauges on reg. A nil reg creates a fresh registry.
func NewRunMetrics(reg *prometheus.Registry) *RunMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	labels := []string{CategoryLabel}

	return &RunMetrics{
		registry: reg,

		testsTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Number of test cases in the category",
		}, labels),
		testsPassed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_passed",
			Help:      "Number of passed test cases in the category",
		}, labels),
		testsFailed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_failed",
			Help:      "Number of failed test cases in the category",
		}, labels),
		successRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "success_rate",
			Help:      "Percentage of passed test cases in the category",
		}, labels),
		avgDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "avg_duration_ms",
			Help:      "Average test case duration in the category, in milliseconds",
		}, labels),
		overallSuccessRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "overall_success_rate",
			Help:      "Percentage of passed test cases across all categories",
		}),
		totalTestCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "total_test_count",
			Help:      "Number of test cases across all categories",
		}),
		executionTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "test_execution_timestamp",
			Help:      "Unix timestamp of the run, in milliseconds",
		}),
	}
}

// RecordSummary sets every gauge from summary. Empty categories are exported with zeros.
func (m *RunMetrics) RecordSummary(summary *types.RunSummary) {
	for _, c := range types.Categories {
		agg := summary.Category(c)
		label := c.String()
		m.testsTotal.WithLabelValues(label).Set(float64(agg.Total))
		m.testsPassed.WithLabelValues(label).Set(float64(agg.Passed))
		m.testsFailed.WithLabelValues(label).Set(float64(agg.Failed))
		m.successRate.WithLabelValues(label).Set(agg.SuccessRatePercent())
		m.avgDuration.WithLabelValues(label).Set(agg.AvgDurationMs())
	}
	m.overallSuccessRate.Set(summary.SuccessRatePercent())
	m.totalTestCount.Set(float64(summary.Total()))
	m.executionTimestamp.Set(float64(summary.TimestampMs()))
}

// Gather returns the metric families in export order
func (m *RunMetrics) Gather() ([]*dto.MetricFamily, error) {
	mfs, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather run metrics: %w", err)
	}

	byName := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		byName[mf.GetName()] = mf
	}

	ordered := make([]*dto.MetricFamily, 0, len(mfs))
	for _, name := range exportOrder {
		if mf, ok := byName[name]; ok {
			ordered = append(ordered, mf)
			delete(byName, name)
		}
	}
	// the timestamp family has to stay last
	if len(byName) > 0 {
		return nil, fmt.Errorf("unexpected metric families registered: %d", len(byName))
	}
	return ordered, nil
}
