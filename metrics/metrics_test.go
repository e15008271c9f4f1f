package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

func sampleSummary() *types.RunSummary {
	s := types.NewRunSummary("run-1", time.UnixMilli(1700000000000))
	s.Categories[types.CategoryCore].Add(types.TestCase{Status: types.TestStatusPassed, DurationMs: 100})
	s.Categories[types.CategoryCore].Add(types.TestCase{Status: types.TestStatusFailed, DurationMs: 300})
	s.Categories[types.CategoryMobile].Add(types.TestCase{Status: types.TestStatusPassed, DurationMs: 50})
	return s
}

func TestRecordSummary(t *testing.T) {
	m := NewRunMetrics(nil)
	m.RecordSummary(sampleSummary())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.testsTotal.WithLabelValues("core_tests")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.testsPassed.WithLabelValues("core_tests")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.testsFailed.WithLabelValues("core_tests")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.successRate.WithLabelValues("core_tests")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.avgDuration.WithLabelValues("core_tests")))

	// empty categories are still exported
	assert.Equal(t, 0.0, testutil.ToFloat64(m.testsTotal.WithLabelValues("visual_tests")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.successRate.WithLabelValues("airtable_integration")))

	assert.InDelta(t, 66.666, testutil.ToFloat64(m.overallSuccessRate), 0.001)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.totalTestCount))
	assert.Equal(t, 1700000000000.0, testutil.ToFloat64(m.executionTimestamp))
}

func TestGather_Order(t *testing.T) {
	m := NewRunMetrics(prometheus.NewRegistry())
	m.RecordSummary(sampleSummary())

	mfs, err := m.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, len(exportOrder))

	for i, mf := range mfs {
		assert.Equal(t, exportOrder[i], mf.GetName())
	}
	assert.Equal(t, ExecutionTimestampName, mfs[len(mfs)-1].GetName())

	// one sample per category in every per-category family
	assert.Len(t, mfs[0].GetMetric(), len(types.Categories))
}

func TestGather_RejectsForeignFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)
	m.RecordSummary(sampleSummary())

	extra := prometheus.NewGauge(prometheus.GaugeOpts{Name: "something_else"})
	reg.MustRegister(extra)
	extra.Set(1)

	_, err := m.Gather()
	require.Error(t, err)
}
