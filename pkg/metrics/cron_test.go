package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronRunsCountedByResult(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	const job = "delivery-overdue"

	m.ObserveRun(job, 250*time.Millisecond, nil)
	m.ObserveRun(job, time.Second, errors.New("db down"))
	m.ObserveRun(job, 100*time.Millisecond, nil)
	m.CycleSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))

	stamp := testutil.ToFloat64(m.lastSuccess.WithLabelValues(job))
	assert.InDelta(t, float64(time.Now().Unix()), stamp, 60)
}

func TestCronDurationHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("outbox-retention", 300*time.Millisecond, nil)
	m.ObserveRun("outbox-retention", 2*time.Second, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	var count uint64
	for _, mf := range families {
		if mf.GetName() != "sunflower_cron_job_duration_seconds" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			sum += metric.GetHistogram().GetSampleSum()
			count += metric.GetHistogram().GetSampleCount()
		}
	}
	assert.EqualValues(t, 2, count)
	assert.InDelta(t, 2.3, sum, 0.001)
}

func TestCronBlankJobLabel(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.ObserveRun("", time.Millisecond, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")))
}

func TestNilCronMetrics(t *testing.T) {
	assert.Nil(t, NewCronJobMetrics(nil))

	var m *CronJobMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun("x", time.Second, nil)
		m.CycleSkipped()
	})
}
